// Package notify delivers the out-of-band decryption secret to a
// recipient. Delivery failures never fail the upload that triggered
// them; callers log and move on.
package notify

import "context"

// Notifier sends the decryption secret for a newly uploaded file to
// the recipient's registered address.
type Notifier interface {
	SendSecret(ctx context.Context, recipientEmail, senderName, secret string) error
}

// Noop discards notifications. Used when no mail transport is
// configured.
type Noop struct{}

func (Noop) SendSecret(ctx context.Context, recipientEmail, senderName, secret string) error {
	return nil
}
