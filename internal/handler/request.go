package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/tenki/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 64 << 10

// validate はリクエストボディの検証に使う共有バリデーター。
// エラーメッセージのフィールド名にはJSONタグ名を使う。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate はJSONボディをdstにデコードし、validateタグで検証する。
// 失敗時はクライアントに返すAPIErrorを返す。
func decodeAndValidate(r *http.Request, dst any) *model.APIError {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return model.NewInvalidRequestError()
	}
	if err := validate.Struct(dst); err != nil {
		return validationErrorFrom(err)
	}
	return nil
}

// validationErrorFrom はvalidatorのエラーを最初の違反フィールドのメッセージに変換する。
func validationErrorFrom(err error) *model.APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError("入力内容が不正です。")
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return model.NewValidationError(fmt.Sprintf("%s は必須です。", fe.Field()))
	case "email":
		return model.NewValidationError(fmt.Sprintf("%s の形式が正しくありません。", fe.Field()))
	case "min", "gte":
		return model.NewValidationError(fmt.Sprintf("%s は %s 以上で指定してください。", fe.Field(), fe.Param()))
	case "max", "lte":
		return model.NewValidationError(fmt.Sprintf("%s は %s 以下で指定してください。", fe.Field(), fe.Param()))
	case "oneof":
		return model.NewValidationError(fmt.Sprintf("%s は %s のいずれかを指定してください。", fe.Field(), fe.Param()))
	default:
		return model.NewValidationError(fmt.Sprintf("%s が不正です。", fe.Field()))
	}
}

// optionalString は文字列・数値・nullのいずれも受け付けるJSON値。
// condition_valueは画面によって数値で送られることがある。
type optionalString struct {
	Value *string
}

// UnmarshalJSON は文字列はそのまま、数値はJSON表記の文字列として保持する。
func (o *optionalString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		o.Value = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("condition_value must be a string or number: %w", err)
	}
	s := n.String()
	o.Value = &s
	return nil
}

// parseCoordinates はクエリパラメータlat/lonを解析する。
func parseCoordinates(r *http.Request) (float64, float64, *model.APIError) {
	q := r.URL.Query()
	rawLat, rawLon := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lon"))
	if rawLat == "" || rawLon == "" {
		return 0, 0, model.NewValidationError("緯度(lat)と経度(lon)のパラメータが必要です。")
	}

	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil || !finite(lat) || lat < -90 || lat > 90 {
		return 0, 0, model.NewValidationError("緯度(lat)は-90から90の数値で指定してください。")
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil || !finite(lon) || lon < -180 || lon > 180 {
		return 0, 0, model.NewValidationError("経度(lon)は-180から180の数値で指定してください。")
	}
	return lat, lon, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
