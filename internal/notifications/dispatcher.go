package notifications

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"bboard/internal/models"
	"bboard/internal/observability"
	"bboard/internal/signing"
)

// DefaultHost is used in links when no site host is configured.
const DefaultHost = "http://127.0.0.1:8000"

//go:embed templates/*.txt
var templateFS embed.FS

// Dispatcher renders the board's letters and hands them to a Mailer.
type Dispatcher struct {
	mailer    Mailer
	templates *template.Template
	signer    *signing.Signer
	host      string
}

// NewDispatcher parses the embedded templates. host is the scheme and
// authority used to build links, e.g. "https://board.example.com".
func NewDispatcher(mailer Mailer, signer *signing.Signer, host string) (*Dispatcher, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = DefaultHost
	}
	return &Dispatcher{mailer: mailer, templates: tmpl, signer: signer, host: host}, nil
}

// Host returns the link prefix in use.
func (d *Dispatcher) Host() string {
	return d.host
}

type activationContext struct {
	User *models.User
	Host string
	Sign string
}

type newCommentContext struct {
	Author  *models.User
	Host    string
	Ad      *models.Ad
	Comment *models.Comment
}

type passwordResetContext struct {
	User     *models.User
	Protocol string
	Domain   string
	UID      string
	Token    string
}

// SendActivation mails the signed activation link to user.
func (d *Dispatcher) SendActivation(ctx context.Context, user *models.User) error {
	data := activationContext{User: user, Host: d.host, Sign: d.signer.Sign(user.Username)}
	return d.send(ctx, "activation", user.Email, "activation_letter", data)
}

// SendNewComment tells the ad's author about a new comment.
func (d *Dispatcher) SendNewComment(ctx context.Context, author *models.User, ad *models.Ad, comment *models.Comment) error {
	data := newCommentContext{Author: author, Host: d.host, Ad: ad, Comment: comment}
	return d.send(ctx, "new_comment", author.Email, "new_comment_letter", data)
}

// SendPasswordReset mails a reset link built from uid and token.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, user *models.User, uid, token string) error {
	protocol, domain := "http", strings.TrimPrefix(d.host, "http://")
	if u, err := url.Parse(d.host); err == nil && u.Host != "" {
		protocol, domain = u.Scheme, u.Host
	}
	data := passwordResetContext{User: user, Protocol: protocol, Domain: domain, UID: uid, Token: token}
	return d.send(ctx, "password_reset", user.Email, "password_reset", data)
}

func (d *Dispatcher) send(ctx context.Context, kind, to, name string, data any) (err error) {
	ctx, span := observability.StartClientSpan(ctx, "mail", kind)
	defer func() {
		observability.RecordEmail(kind, err)
		observability.EndSpan(span, err)
	}()

	subject, err := d.render(name+"_subject.txt", data)
	if err != nil {
		return err
	}
	body, err := d.render(name+"_body.txt", data)
	if err != nil {
		return err
	}
	// Subjects must be a single line.
	subject = strings.Join(strings.Fields(subject), " ")

	return d.mailer.Send(ctx, Message{To: to, Subject: subject, Body: body})
}

func (d *Dispatcher) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
