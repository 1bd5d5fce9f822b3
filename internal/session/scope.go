package session

import "context"

// Scope guards coverage measurement over a block of code when decorating
// the whole handler is too coarse. Use as:
//
//	sc := session.Begin(ctx)
//	defer sc.End(ctx)
//
// Nested or concurrent scopes each measure independently as far as the
// engine allows; the default profile-file engine measures whatever the
// instrumented process wrote between Begin and End.
type Scope struct {
	s  *Session
	id string
}

// Begin starts a measured scope. It never fails: when measurement cannot
// start, the returned scope is inert and End is a no-op.
func Begin(ctx context.Context, opts ...Option) *Scope {
	o := resolveOptions(opts)
	s := newSession(ctx, o)
	s.start(ctx)
	return &Scope{s: s, id: executionID(ctx)}
}

// End finalizes the scope, uploading collected coverage. Safe to call
// more than once; only the first call does work.
func (sc *Scope) End(ctx context.Context) {
	if sc == nil || sc.s == nil {
		return
	}
	sc.s.finish(ctx, sc.id)
}
