package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// echo.Validator の実装
// 独自タグ: mobile, pincode, otp
type RequestValidator struct {
	v *playground.Validate
}

func New() *RequestValidator {
	v := playground.New()

	// エラーメッセージはjsonのフィールド名で出す
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("mobile", func(fl playground.FieldLevel) bool {
		return IsMobile(fl.Field().String())
	})
	_ = v.RegisterValidation("pincode", func(fl playground.FieldLevel) bool {
		return IsPincode(fl.Field().String())
	})
	_ = v.RegisterValidation("otp", func(fl playground.FieldLevel) bool {
		return IsOTP(fl.Field().String())
	})

	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// 先頭のフィールドエラーを人が読める文にする
func Message(err error) string {
	var ves playground.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return "invalid request"
	}

	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "mobile":
		return fmt.Sprintf("%s must be 10 digits", fe.Field())
	case "pincode", "otp":
		return fmt.Sprintf("%s must be 6 digits", fe.Field())
	case "min", "gte", "gt":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte", "lt":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
