package handler

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	ifscPattern  = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	upiPattern   = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
	moneyPattern = regexp.MustCompile(`^\d{1,15}(\.\d{1,2})?$`)
	ratePattern  = regexp.MustCompile(`^(0(\.\d{1,4})?|1(\.0{1,4})?)$`)

	registerOnce sync.Once
)

// RegisterValidators adds the payout and money tags to gin's validator.
// It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("ifsc", matches(ifscPattern))
		_ = v.RegisterValidation("upi", matches(upiPattern))
		_ = v.RegisterValidation("money", matches(moneyPattern))
		_ = v.RegisterValidation("rate", matches(ratePattern))
	})
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}
