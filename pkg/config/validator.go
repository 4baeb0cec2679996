package config

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// javaPackagePattern matches dotted lowercase java package names such as io.syndesis.example
var javaPackagePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)*$`)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("java_package", validateJavaPackage)
}

func validateJavaPackage(fl validator.FieldLevel) bool {
	return javaPackagePattern.MatchString(fl.Field().String())
}
