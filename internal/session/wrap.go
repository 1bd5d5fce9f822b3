package session

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"github.com/oleg-kozlyuk-grafana/go-understory/internal/config"
)

// Options configures Wrap and Begin. All fields are optional; the zero
// value resolves everything from the environment.
type Options struct {
	cfg          *config.CoverageConfig
	engine       Engine
	up           payloadUploader
	logger       *slog.Logger
	functionName string
}

// Option customizes session construction.
type Option func(*Options)

// WithConfig overrides the environment-derived configuration.
func WithConfig(cfg *config.CoverageConfig) Option {
	return func(o *Options) { o.cfg = cfg }
}

// WithEngine overrides the default profile-file measurement engine.
func WithEngine(engine Engine) Option {
	return func(o *Options) { o.engine = engine }
}

// WithUploader overrides the shared upload pipeline.
func WithUploader(up payloadUploader) Option {
	return func(o *Options) { o.up = up }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

// WithFunctionName overrides the function name used in storage keys.
func WithFunctionName(name string) Option {
	return func(o *Options) { o.functionName = name }
}

// Wrap decorates a Lambda handler with coverage measurement. The wrapped
// handler has the same signature, returns the inner handler's result and
// error verbatim, and keeps working even when coverage collection or
// upload is impossible.
func Wrap[TIn, TOut any](handler func(context.Context, TIn) (TOut, error), opts ...Option) func(context.Context, TIn) (TOut, error) {
	o := resolveOptions(opts)

	return func(ctx context.Context, event TIn) (TOut, error) {
		s := newSession(ctx, o)
		s.start(ctx)
		defer s.finish(ctx, executionID(ctx))

		return handler(ctx, event)
	}
}

// newSession assembles a Session from resolved options, degrading to an
// inert session when configuration or storage setup fails.
func newSession(ctx context.Context, o *Options) *Session {
	s := &Session{
		cfg:          o.cfg,
		engine:       o.engine,
		up:           o.up,
		logger:       o.logger,
		functionName: o.functionName,
		state:        stateIdle,
	}

	if s.cfg == nil {
		cfg, err := config.Cached()
		if err != nil {
			s.logger.Warn("coverage disabled: configuration is invalid", "error", err)
			s.engine = nil
			return s
		}
		s.cfg = cfg
	}

	if s.up == nil {
		up, err := sharedUploader(ctx, s.cfg, s.logger)
		if err != nil {
			s.logger.Warn("coverage disabled: storage client setup failed", "error", err)
			s.engine = nil
			return s
		}
		s.up = up
	}

	return s
}

func resolveOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.engine == nil {
		o.engine = NewProfileFileEngine()
	}
	if o.functionName == "" {
		o.functionName = resolveFunctionName()
	}
	return o
}

// resolveFunctionName picks the Lambda function name from the runtime
// environment, falling back to a placeholder outside Lambda.
func resolveFunctionName() string {
	if name := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); name != "" {
		return name
	}
	return "unknown"
}

// executionID identifies one invocation in storage keys. Inside Lambda it
// is the AWS request ID; elsewhere a short random ID keeps keys unique.
func executionID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()[:8]
}
