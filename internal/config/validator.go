package config

import (
	"EnclosureAPI/internal/constant"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("media_kind", validateMediaKind)
	_ = v.RegisterValidation("conversation_kind", validateConversationKind)
	return v
}

func validateMediaKind(fl validator.FieldLevel) bool {
	kind := constant.MediaKind(fl.Field().String())
	return kind == constant.MediaKindImage || kind == constant.MediaKindVideo
}

func validateConversationKind(fl validator.FieldLevel) bool {
	kind := constant.ConversationKind(fl.Field().String())
	return kind == constant.ConversationContact || kind == constant.ConversationGroup
}
