package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// type Validator interface {
// 	Validate(request http.Request) (Violations, error)
// }

// type validator struct {
// 	rules map[string]string
// }

type Violations struct {
	Errors map[string][]error
}

func (violations Violations) IsEmpty() bool {
	return len(violations.Errors) == 0
}

func ValidateMap(data map[string]any, rules map[string][]string) Violations {
	var violations Violations
	violations.Errors = make(map[string][]error)

	for attributeName, attributeValue := range data {
		attributeRules, attributeRulesExists := rules[attributeName]
		if !attributeRulesExists {
			violations.Errors[attributeName] = append(violations.Errors[attributeName], fmt.Errorf("validation: no rules found :: %s", attributeName))
			continue
		}

		var errorCollection []error
		for _, attributeRule := range attributeRules {
			if err := validate(attributeRule, attributeName, attributeValue); err != nil {
				errorCollection = append(errorCollection, err)
			}
		}

		if len(errorCollection) != 0 {
			violations.Errors[attributeName] = errorCollection
		}
	}

	return violations
}

func validate(rule string, name string, value any) error {
	if ruleName, arg, ok := strings.Cut(rule, ":"); ok {
		switch ruleName {
		case "min":
			size, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid validation rule :: %s", rule)
			}
			if !ValidateGreaterThenOrEqual(fmt.Sprint(value), size) {
				return fmt.Errorf("%s must be at least %d", name, size)
			}
			return nil
		case "max":
			size, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid validation rule :: %s", rule)
			}
			if !ValidateLesserThenOrEqual(fmt.Sprint(value), size) {
				return fmt.Errorf("%s must be at most %d", name, size)
			}
			return nil
		default:
			return fmt.Errorf("invalid validation rule :: %s", rule)
		}
	}

	switch rule {
	case "bool":
		if !ValidateBoolean(fmt.Sprint(value)) {
			return fmt.Errorf("%s must be a boolean", name)
		}
		return nil
	case "required":
		{
			err := fmt.Errorf("%s is required", name)

			switch v := value.(type) {
			case nil:
				{
					return err
				}
			case string:
				{
					if v == "" {
						return err
					}
				}
			case []any:
				{
					if len(v) == 0 {
						return err
					}
				}
			}
		}
	default:
		{
			return fmt.Errorf("invalid validation rule :: %s", rule)
		}
	}

	return nil
}

// Numberic operations
func ValidateGreaterThenOrEqual(value string, size int) bool {
	valueAsInt, err := strconv.Atoi(value)
	if err != nil {
		return false
	}

	return valueAsInt >= size
}

func ValidateLesserThenOrEqual(value string, size int) bool {
	valueAsInt, err := strconv.Atoi(value)
	if err != nil {
		return false
	}

	return valueAsInt <= size
}

// Boolean operations
func ValidateBoolean(value string) bool {
	return ValidateTrue(value) || ValidateFalse(value)
}

func ValidateTrue(value string) bool {
	return value == "1" || value == "true"
}

func ValidateFalse(value string) bool {
	return value == "0" || value == "false"
}
