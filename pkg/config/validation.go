package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the configuration against its struct validation tags and
// a handful of cross-field rules the tags cannot express.
//
// Returned errors name the offending field and the failed rule, for example:
//
//	invalid configuration: field "Logging.Level" failed on the 'oneof' rule (value: "TRACE")
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				// Strip the leading "Config." from the namespace
				field := strings.TrimPrefix(fe.Namespace(), "Config.")
				msgs = append(msgs, fmt.Sprintf("field %q failed on the '%s' rule (value: %q)",
					field, fe.Tag(), fmt.Sprintf("%v", fe.Value())))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The static backing flavor is identity-only, so the authority has to
	// come from the config itself.
	if cfg.Backing.Type == "static" && cfg.Backing.Authority == "" {
		return fmt.Errorf("invalid configuration: backing.authority is required when backing.type is \"static\"")
	}

	return nil
}
