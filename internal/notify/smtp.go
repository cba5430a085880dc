package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// SMTPNotifier sends the secret as an HTML mail over a plain SMTP
// submission connection.
type SMTPNotifier struct {
	addr string
	host string
	from string
	auth smtp.Auth

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier configures delivery via host:port. Auth is only
// used when username is non-empty.
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	n := &SMTPNotifier{
		addr: net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		host: host,
		from: from,
		send: smtp.SendMail,
	}
	if username != "" {
		n.auth = smtp.PlainAuth("", username, password, host)
	}
	return n
}

func (n *SMTPNotifier) SendSecret(ctx context.Context, recipientEmail, senderName, secret string) error {
	if recipientEmail == "" {
		return fmt.Errorf("recipient has no notification address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildSecretMail(n.from, recipientEmail, senderName, secret)
	if err := n.send(n.addr, n.auth, n.from, []string{recipientEmail}, msg); err != nil {
		return fmt.Errorf("send secret mail to %s: %w", recipientEmail, err)
	}
	return nil
}

func buildSecretMail(from, to, senderName, secret string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Encrypted document from %s\r\n", senderName)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, `<div style="font-family: Arial, sans-serif; padding: 20px;">
<h2>Encrypted file notification</h2>
<p><strong>%s</strong> has sent you a document. The file is encrypted at rest.</p>
<p>Use the following key to unlock the file after you download it:</p>
<p><code style="font-size: 18px; letter-spacing: 1px;">%s</code></p>
<ol>
<li>Download the encrypted file (the .enc attachment) sent to you separately.</li>
<li>Enter this key in the decrypt form to recover the original content.</li>
</ol>
<p style="font-size: 12px; color: #999;">This key is the only way to access the content. Do not share it.</p>
</div>
`, senderName, secret)
	return []byte(b.String())
}
