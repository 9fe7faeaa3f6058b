package blog

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxCommentLength = 2000

type FieldError struct {
	Location string `json:"location"`
	Param    string `json:"param"`
	Value    string `json:"value,omitempty"`
	Msg      string `json:"msg"`
}

// ValidationError - запрос отклонен, ничего не сохранено
type ValidationError struct {
	Errors []*FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Param+" "+fe.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type validator struct {
	location string
	field    string
	value    *string
}

func field(name string, value *string) *validator {
	return &validator{location: "body", field: name, value: value}
}

func (v *validator) required() *FieldError {
	if v.value == nil {
		return &FieldError{Location: v.location, Param: v.field, Msg: "is required"}
	}
	return nil
}

func (v *validator) notBlank() *FieldError {
	if strings.TrimSpace(*v.value) == "" {
		return &FieldError{Location: v.location, Param: v.field, Value: *v.value, Msg: "cannot be blank"}
	}
	return nil
}

func (v *validator) maxLength(max int) *FieldError {
	if utf8.RuneCountInString(*v.value) > max {
		return &FieldError{Location: v.location, Param: v.field,
			Msg: fmt.Sprintf("must be at most %d characters long", max)}
	}
	return nil
}

// check выполняет проверки по порядку до первой ошибки
func (v *validator) check(rules ...func() *FieldError) *FieldError {
	for _, rule := range rules {
		if err := rule(); err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(validations ...*FieldError) error {
	result := make([]*FieldError, 0, len(validations))
	for _, err := range validations {
		if err != nil {
			result = append(result, err)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return &ValidationError{Errors: result}
}
