package notify

import (
	"context"
	"fmt"
	"strings"

	"swapdesk/internal/model"
)

// Publisher fans out action state transitions.
type Publisher interface {
	PublishAction(ctx context.Context, action model.ActionSnapshot) error
}

const (
	channelPrefix = "dex:actions:"
	// ChannelAll receives every transition.
	ChannelAll = channelPrefix + "all"
)

// AccountChannel is the per-account transition channel.
func AccountChannel(account string) string {
	return fmt.Sprintf("%s%s", channelPrefix, strings.ToLower(account))
}
