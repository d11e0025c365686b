package forms

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// BindingValidator plugs go-playground/validator into gin's binding
// layer, reading the rules off the "binding" struct tag the form types
// in this package declare.
type BindingValidator struct {
	once     sync.Once
	validate *validator.Validate
}

var _ binding.StructValidator = (*BindingValidator)(nil)

// ValidateStruct checks the struct tags of obj; non-struct values pass
// through untouched
func (v *BindingValidator) ValidateStruct(obj interface{}) error {
	if kindOf(obj) != reflect.Struct {
		return nil
	}
	return v.engine().Struct(obj)
}

// Engine exposes the underlying validator so handlers can register
// custom rules
func (v *BindingValidator) Engine() interface{} {
	return v.engine()
}

func (v *BindingValidator) engine() *validator.Validate {
	v.once.Do(func() {
		v.validate = validator.New()
		v.validate.SetTagName("binding")
	})
	return v.validate
}

// kindOf dereferences pointers before reporting the reflection kind
func kindOf(obj interface{}) reflect.Kind {
	value := reflect.ValueOf(obj)
	if value.Kind() == reflect.Ptr {
		return value.Elem().Kind()
	}
	return value.Kind()
}
