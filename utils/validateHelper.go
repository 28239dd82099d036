package utils

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// FieldProblem is one failed validation rule, named by its json field path.
type FieldProblem struct {
	Field   string
	Message string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs the `validate` tags of s and returns the first problem,
// or nil when s is valid.
func ValidateStruct(s any) *FieldProblem {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &FieldProblem{Message: err.Error()}
	}
	fe := verrs[0]
	return &FieldProblem{Field: fieldPath(fe.Namespace()), Message: ruleMessage(fe)}
}

// "NewReconciliation.items[0].materialId" -> "items[0].materialId"
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// ResourceCountWhere counts rows matching business_id = ? AND condition.
func ResourceCountWhere[T any](ctx context.Context, db *gorm.DB, businessId string, condition string, value ...interface{}) (int64, error) {
	var model T
	q := db.WithContext(ctx).Model(&model)
	if businessId != "" {
		q = q.Where("business_id = ?", businessId)
	}
	var count int64
	if err := q.Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
