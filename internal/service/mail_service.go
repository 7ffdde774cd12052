package service

import (
	"context"
	"fmt"
	"io"
	"mystery_hunt_backend/internal/config"
	"mystery_hunt_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mail 一封待发送的邮件
type Mail struct {
	To       string
	Subject  string
	Body     string
	Image    []byte
	MimeType string
}

// Notifier 邮件发送
type Notifier interface {
	Send(ctx context.Context, mail Mail) error
}

// SMTPNotifier 通过SMTP发送
type SMTPNotifier struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPNotifier(cfg config.MailConfig) *SMTPNotifier {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	// 465 端口使用隐式TLS，其余端口由 gomail 自动 STARTTLS
	d.SSL = cfg.SMTPPort == 465
	from := cfg.FromAddress
	if from == "" {
		from = cfg.Username
	}
	return &SMTPNotifier{dialer: d, from: from, fromName: cfg.FromName}
}

func (n *SMTPNotifier) Send(ctx context.Context, mail Mail) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.from, n.fromName)
	m.SetHeader("To", mail.To)
	m.SetHeader("Subject", mail.Subject)
	m.SetBody("text/plain", mail.Body)

	if len(mail.Image) > 0 {
		mimeType := mail.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		data := mail.Image
		m.Attach(attachmentName(mimeType),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {mimeType}}),
		)
	}

	done := make(chan error, 1)
	go func() { done <- n.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", mail.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func attachmentName(mimeType string) string {
	ext := "bin"
	if i := strings.Index(mimeType, "/"); i >= 0 && i+1 < len(mimeType) {
		ext = strings.SplitN(mimeType[i+1:], ";", 2)[0]
	}
	return "hint." + ext
}

// LogNotifier 未配置SMTP时只记录日志
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, mail Mail) error {
	logger.Log.Info("Mail not sent, SMTP not configured",
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject),
		zap.Int("image_bytes", len(mail.Image)))
	return nil
}

// NewNotifier 根据配置选择实现
func NewNotifier(cfg config.MailConfig) Notifier {
	if cfg.SMTPHost == "" || cfg.Username == "" {
		return LogNotifier{}
	}
	return NewSMTPNotifier(cfg)
}

// MailJob 排队中的邮件，图片只保存引用，发送时再读取
type MailJob struct {
	Kind     string `json:"kind"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	ImageRef string `json:"imageRef,omitempty"`
}

const (
	MailKindHint   = "hint"
	MailKindReview = "review"
)

// MailDispatcher 异步投递邮件，失败不影响调用方
type MailDispatcher interface {
	Dispatch(ctx context.Context, job MailJob) error
}

// MailDeliverer 读取图片并调用 Notifier
type MailDeliverer struct {
	Notifier Notifier
	Images   BlobFetcher
}

func (d *MailDeliverer) Deliver(ctx context.Context, job MailJob) error {
	mail := Mail{To: job.To, Subject: job.Subject, Body: job.Body}
	if job.ImageRef != "" && d.Images != nil {
		data, mimeType, err := d.Images.Fetch(ctx, job.ImageRef)
		if err != nil {
			// 图片取不到时仍发送正文
			logger.Log.Warn("Mail image unavailable, sending text only",
				zap.String("ref", job.ImageRef), zap.Error(err))
		} else {
			mail.Image = data
			mail.MimeType = mimeType
		}
	}
	return d.Notifier.Send(ctx, mail)
}

// InlineDispatcher 不使用队列时在 goroutine 中直接发送
type InlineDispatcher struct {
	Deliverer *MailDeliverer
	Timeout   time.Duration
}

func (d *InlineDispatcher) Dispatch(_ context.Context, job MailJob) error {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := d.Deliverer.Deliver(ctx, job); err != nil {
			logger.Log.Error("Mail delivery failed",
				zap.String("kind", job.Kind),
				zap.String("to", job.To),
				zap.Error(err))
		}
	}()
	return nil
}
