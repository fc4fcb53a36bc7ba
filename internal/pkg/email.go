package pkg

import (
	"crypto/tls"
	"fmt"
	"html"
	"time"

	"LFG_Board/internal/config"

	"gopkg.in/gomail.v2"
)

// Mailer 发送 HTML 邮件
type Mailer func(to, subject, htmlBody string) error

// NewSMTPMailer 基于 gomail 的 SMTP 发送
func NewSMTPMailer(cfg config.SMTPConfig) Mailer {
	return func(to, subject, htmlBody string) error {
		return SendEmail(cfg, to, subject, htmlBody)
	}
}

func SendEmail(cfg config.SMTPConfig, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return d.DialAndSend(m)
}

// BanNoticeHTML 封禁通知正文，expiration 为 nil 表示永久
func BanNoticeHTML(username, reason string, expiration *time.Time) string {
	until := "永久"
	if expiration != nil {
		until = expiration.UTC().Format("2006-01-02 15:04 MST")
	}
	return fmt.Sprintf(`<p>%s，您好：</p><p>您的账号已被管理员封禁。</p><p>原因：<b>%s</b></p><p>解封时间：<b>%s</b></p><p>如有疑问请联系管理员。</p>`,
		html.EscapeString(username), html.EscapeString(reason), until)
}
