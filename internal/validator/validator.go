// Package validator はリクエストDTOのvalidateタグを検証する（echo.Validator）。
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// 入力が不正
var ErrInvalidInput = errors.New("invalid input")

// どの項目がどのルールで落ちたか（最初の1件）
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e *FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("invalid %s: %s=%s", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Tag)
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	//エラーにはjsonの名前を出す
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		}
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	//空白だけの文字列を弾く
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	return &Validator{v: v}
}

// echo.Validator
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
