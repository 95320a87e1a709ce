package ctxkeys

import (
	"context"

	"github.com/resquick/portal/internal/config"
	"github.com/resquick/portal/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	PrincipalKey contextKey = "principal"
	AccountKey   contextKey = "account"
	URLPathKey   contextKey = "url_path"
	ConfigKey    contextKey = "config"
	CSRFTokenKey contextKey = "csrf_token"
	RequestIDKey contextKey = "request_id"
)

// Principal returns the authenticated session subject, or nil for guests.
func Principal(ctx context.Context) *model.Principal {
	p, _ := ctx.Value(PrincipalKey).(*model.Principal)
	return p
}

func WithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// Account returns the citizen account behind a citizen session.
func Account(ctx context.Context) *model.Account {
	account, _ := ctx.Value(AccountKey).(*model.Account)
	return account
}

func WithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}

func URLPath(ctx context.Context) string {
	path, _ := ctx.Value(URLPathKey).(string)
	return path
}

func WithURLPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, URLPathKey, path)
}

func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}

func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(CSRFTokenKey).(string)
	return token
}

func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CSRFTokenKey, token)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
