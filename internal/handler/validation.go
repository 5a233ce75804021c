package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/hashtrail/internal/model"
	"github.com/hitoshi/hashtrail/internal/photo"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 64 << 10

var validate = newValidator()

// newValidator はJSONフィールド名でエラーを報告するバリデーターを生成する。
// image_mime タグはアップロード可能な画像形式かどうかを検証する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("image_mime", func(fl validator.FieldLevel) bool {
		return photo.IsAllowedContentType(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// decodeAndValidate はリクエストボディをdstにデコードし、構造体タグで検証する。
func decodeAndValidate(r *http.Request, dst any) *model.APIError {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return model.NewInvalidRequestError("リクエストボディの解析に失敗しました")
	}
	if err := validate.Struct(dst); err != nil {
		return toValidationError(err)
	}
	return nil
}

// toValidationError はバリデーションエラーをAPIErrorに変換する。
// 画像形式の違反はUNSUPPORTED_CONTENT_TYPEとして返す。
func toValidationError(err error) *model.APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewInvalidRequestError(err.Error())
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "image_mime" {
			return model.NewUnsupportedContentTypeError(fmt.Sprint(fe.Value()))
		}
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}
	return model.NewInvalidRequestError("不正な項目があります: " + strings.Join(fields, ", "))
}
