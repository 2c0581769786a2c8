package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vyrodovalexey/wiggly/internal/transport"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

// validate is the shared validator instance.
var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("extension", func(fl validator.FieldLevel) bool {
		ext := fl.Field().String()
		return len(ext) > 1 && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, `/\`)
	})
	_ = v.RegisterValidation("basepath", func(fl validator.FieldLevel) bool {
		p := fl.Field().String()
		return p == "" || (strings.HasPrefix(p, "/") && !strings.ContainsAny(p, "?# "))
	})
	_ = v.RegisterValidation("transport", func(fl validator.FieldLevel) bool {
		_, err := transport.ParseKind(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks struct tags and the cross-field rules tags cannot
// express. Every failure is reported; the result is a join of
// *util.ConfigError values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return util.NewConfigError("", "configuration is nil")
	}

	var errs []error
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return util.NewConfigErrorWithCause("", err.Error(), err)
		}
		for _, fe := range verrs {
			errs = append(errs, util.NewConfigError(fieldPath(fe), describe(fe)))
		}
	}
	errs = append(errs, validateCustomRules(cfg)...)
	return errors.Join(errs...)
}

// validateCustomRules performs validation beyond struct tags.
func validateCustomRules(cfg *Config) []error {
	var errs []error

	if cfg.Routes.MiddlewareDir != "" && sameDir(cfg.Routes.Dir, cfg.Routes.MiddlewareDir) {
		errs = append(errs, util.NewConfigError("routes.middleware_dir",
			"must differ from routes.dir"))
	}

	seen := make(map[string]bool, len(cfg.Routes.Extensions))
	for _, ext := range cfg.Routes.Extensions {
		key := strings.ToLower(ext)
		if seen[key] {
			errs = append(errs, util.NewConfigError("routes.extensions",
				fmt.Sprintf("duplicate extension %s", ext)))
		}
		seen[key] = true
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port != 0 && cfg.Metrics.Port == cfg.Server.Port {
		errs = append(errs, util.NewConfigError("metrics.port",
			fmt.Sprintf("port %d already used by server.port", cfg.Metrics.Port)))
	}

	return errs
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// fieldPath turns "Config.routes.extensions[0]" into "routes.extensions[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return fmt.Sprintf("is required when %s", strings.ReplaceAll(fe.Param(), " ", "="))
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "ip":
		return fmt.Sprintf("must be an IP address, got %q", fe.Value())
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "extension":
		return fmt.Sprintf("must be a file extension starting with '.', got %q", fe.Value())
	case "basepath":
		return fmt.Sprintf("must be empty or an absolute path, got %q", fe.Value())
	case "transport":
		return fmt.Sprintf("must be chi or gin, got %q", fe.Value())
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}
