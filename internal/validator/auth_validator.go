package validator

import (
	"regexp"
	"strings"
)

var (
	mobileRe  = regexp.MustCompile(`^[0-9]{10}$`)
	otpRe     = regexp.MustCompile(`^[0-9]{6}$`)
	pincodeRe = regexp.MustCompile(`^[0-9]{6}$`)
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// 10桁の携帯番号
func IsMobile(s string) bool {
	return mobileRe.MatchString(s)
}

// 6桁のOTP
func IsOTP(s string) bool {
	return otpRe.MatchString(s)
}

func IsPincode(s string) bool {
	return pincodeRe.MatchString(s)
}

// 簡易メール形式をチェック
func IsEmailLike(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

func IsGender(s string) bool {
	switch s {
	case "Male", "Female", "Other":
		return true
	}
	return false
}
