// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// CreateNodeInput is the payload for Engine.CreateNode.
type CreateNodeInput struct {
	UserID   string         `json:"user_id" validate:"required"`
	Type     store.NodeType `json:"type" validate:"required,node_type"`
	Slug     string         `json:"slug" validate:"required,max=200"`
	Title    string         `json:"title" validate:"required,max=500"`
	Content  string         `json:"content,omitempty"`
	Summary  string         `json:"summary,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateEdgeInput is the payload for Engine.CreateEdge. A nil Weight
// defaults to 1.0.
type CreateEdgeInput struct {
	UserID      string         `json:"user_id" validate:"required"`
	SourceID    string         `json:"source_id" validate:"required"`
	TargetID    string         `json:"target_id" validate:"required,nefield=SourceID"`
	EdgeType    store.EdgeType `json:"edge_type" validate:"required,edge_type"`
	CustomLabel *string        `json:"custom_label,omitempty"`
	Weight      *float64       `json:"weight,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ListOptions filters ListNodes. A zero Limit means DefaultListLimit.
type ListOptions struct {
	Type   store.NodeType
	Search string
	Limit  int
	Offset int
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("node_type", func(fl validator.FieldLevel) bool {
		return store.NodeType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("edge_type", func(fl validator.FieldLevel) bool {
		return store.EdgeType(fl.Field().String()).Valid()
	})
	return v
}

func validateInput(in any) error {
	return ValidateStruct(in, moserr.CodeGraphInputInvalid)
}

// ValidateStruct runs the `validate` struct tags of in, including the
// node_type and edge_type rules, and folds every field error into one error
// carrying code.
func ValidateStruct(in any, code moserr.Code) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return moserr.Errorf(code, "validating input: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return moserr.New(code, strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "node_type", "edge_type":
		return field + " has unknown value " + quote(fe.Value())
	case "nefield":
		return field + " must differ from " + fe.Param()
	case "gte":
		return field + " must be >= " + fe.Param()
	case "lte":
		return field + " must be <= " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func quote(v any) string {
	return fmt.Sprintf("%q", fmt.Sprint(v))
}
