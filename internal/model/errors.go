// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code       string // エラーコード
	Message    string // エラーメッセージ
	Category   string // カテゴリ: auth, validation, favorite, subscription, weather, system
	Action     string // ユーザー向け対処方法
	RedirectTo string // 未認証時にクライアントが遷移すべきパス
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// LoginPath は未認証レスポンスで返すリダイレクト先。
const LoginPath = "/login.html"

// 定義済みエラーコード
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken            = "EMAIL_ALREADY_REGISTERED"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeFavoriteNotFound      = "FAVORITE_NOT_FOUND"
	ErrCodeDuplicateFavorite     = "DUPLICATE_FAVORITE"
	ErrCodeSubscriptionNotFound  = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeDuplicateSubscription = "DUPLICATE_SUBSCRIPTION"
	ErrCodeUpstream              = "UPSTREAM_ERROR"
	ErrCodeWeatherAPIKeyMissing  = "WEATHER_API_KEY_MISSING"
	ErrCodeCSRF                  = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimit             = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// NewValidationError は入力値不正エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
// クライアントはRedirectToへ遷移してログインする。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:       ErrCodeUnauthorized,
		Message:    "認証が必要です。",
		Category:   "auth",
		Action:     "ログインしてください。",
		RedirectTo: LoginPath,
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワードの不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewEmailTakenError は登録済みメールアドレスでのサインアップエラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログイン画面からログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewFavoriteNotFoundError はお気に入りが存在しない、または他ユーザーの所有である場合のエラーを生成する。
func NewFavoriteNotFoundError(favoriteID string) *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteNotFound,
		Message:  fmt.Sprintf("指定されたお気に入り地点が見つかりません: %s", favoriteID),
		Category: "favorite",
		Action:   "お気に入り一覧を再読み込みしてください。",
	}
}

// NewDuplicateFavoriteError は同一座標のお気に入りを重複登録しようとした場合のエラーを生成する。
func NewDuplicateFavoriteError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateFavorite,
		Message:  "この地点は既にお気に入りに登録されています。",
		Category: "favorite",
		Action:   "お気に入り一覧から該当地点を確認してください。",
	}
}

// NewSubscriptionNotFoundError は天気条件の購読が見つからない場合のエラーを生成する。
func NewSubscriptionNotFoundError(subscriptionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionNotFound,
		Message:  fmt.Sprintf("指定された購読が見つかりません: %s", subscriptionID),
		Category: "subscription",
		Action:   "購読IDを確認してください。",
	}
}

// NewDuplicateSubscriptionError は同じ地点・同じ条件の購読を再度登録しようとした場合のエラーを生成する。
func NewDuplicateSubscriptionError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSubscription,
		Message:  "この地点には同じ条件の購読が既に登録されています。",
		Category: "subscription",
		Action:   "購読一覧から該当の条件を確認してください。",
	}
}

// NewUpstreamError は天気プロバイダーの呼び出し失敗エラーを生成する。
func NewUpstreamError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstream,
		Message:  "天気情報の取得に失敗しました。",
		Category: "weather",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewWeatherAPIKeyMissingError は天気APIキー未設定エラーを生成する。
func NewWeatherAPIKeyMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeWeatherAPIKeyMissing,
		Message:  "API key not configured",
		Category: "system",
		Action:   "管理者に連絡してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRF,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimit,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
