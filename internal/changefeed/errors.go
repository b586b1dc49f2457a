package changefeed

import "errors"

var (
	errBrokerClosed      = errors.New("changefeed: broker closed")
	errSubscriptionEnded = errors.New("changefeed: subscription channel closed")
)
