/*
Package email sends leave-related notifications over SMTP. When SMTP is
not configured the mailer is a no-op, so callers never branch on
whether email is enabled.

Notifications are best effort: a failed send is logged by the caller
and never fails the triggering operation.
*/
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/dayoff/leave-engine/config"
	"github.com/dayoff/leave-engine/leave"
)

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, string, string, string) error { return nil }

type smtpMailer struct {
	cfg config.Config
}

// NewMailer builds a Mailer from configuration. Disabled or
// host-less configurations yield a no-op mailer.
func NewMailer(cfg config.Config) Mailer {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return noopMailer{}
	}
	return &smtpMailer{cfg: cfg}
}

func (s *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.SMTPUseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost}); err != nil {
			return err
		}
	}
	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(s.cfg.EmailFrom); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	wc, err := client.Data()
	if err != nil {
		return err
	}
	msg := buildMessage(s.cfg.EmailFrom, to, subject, body)
	if _, err := wc.Write([]byte(msg)); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.String()
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notifier composes the leave notifications the dashboards trigger:
// one to the administrator and one to the employee on submission, and
// both again on a status change.
type Notifier struct {
	mailer     Mailer
	adminEmail string
}

// NewNotifier creates a notifier.
func NewNotifier(mailer Mailer, adminEmail string) *Notifier {
	return &Notifier{mailer: mailer, adminEmail: adminEmail}
}

func leaveDetails(req leave.LeaveRequest, emp leave.Employee) string {
	return fmt.Sprintf(
		"員工姓名: %s\n員工 Email: %s\n請假日期: %s\n時段: %s\n假別: %s\n天數: %s\n事由: %s\n狀態: %s\n",
		emp.Name, req.EmployeeEmail, req.Date.Format("2006-01-02"),
		req.Period, req.Type, req.Days, req.Reason, req.Status)
}

// LeaveRequested notifies both parties of a new submission. The first
// send error is returned; the second send is attempted regardless.
func (n *Notifier) LeaveRequested(ctx context.Context, req leave.LeaveRequest, emp leave.Employee) error {
	details := leaveDetails(req, emp)

	adminErr := n.mailer.Send(ctx, n.adminEmail,
		fmt.Sprintf("[新假單申請] %s 的 %s 申請", emp.Name, req.Type),
		"新的請假單已提交。\n\n"+details)

	empErr := n.mailer.Send(ctx, req.EmployeeEmail,
		"您的請假申請已提交",
		fmt.Sprintf("您的 %s 申請已成功提交，正在等待管理員審核。\n\n%s", req.Type, details))

	if adminErr != nil {
		return adminErr
	}
	return empErr
}

func statusText(s leave.Status) string {
	switch s {
	case leave.StatusApproved:
		return "已核准"
	case leave.StatusRejected:
		return "已拒絕"
	}
	return string(s)
}

// StatusChanged notifies both parties of a status update.
func (n *Notifier) StatusChanged(ctx context.Context, req leave.LeaveRequest, emp leave.Employee) error {
	details := leaveDetails(req, emp)
	text := statusText(req.Status)

	empErr := n.mailer.Send(ctx, req.EmployeeEmail,
		fmt.Sprintf("[假單狀態更新] 您的 %s 申請%s", req.Type, text),
		fmt.Sprintf("您於 %s 提交的 %s 申請，狀態已更新為 %s。\n\n%s",
			req.Date.Format("2006-01-02"), req.Type, text, details))

	adminErr := n.mailer.Send(ctx, n.adminEmail,
		fmt.Sprintf("[假單狀態更新] %s 的 %s 申請%s", emp.Name, req.Type, text),
		fmt.Sprintf("%s 的 %s 申請狀態已更新為 %s。\n\n%s", emp.Name, req.Type, text, details))

	if empErr != nil {
		return empErr
	}
	return adminErr
}
