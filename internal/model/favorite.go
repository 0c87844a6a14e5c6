// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Favorite はユーザーがブックマークした地点を表す。
// 所有者はUserIDのユーザーのみで、削除時は紐づくSubscriptionもCASCADE削除される。
type Favorite struct {
	ID           string
	UserID       string
	LocationName string
	Latitude     float64
	Longitude    float64
	CreatedAt    time.Time
}

// ConditionType は天気条件の種別を表す。
type ConditionType string

const (
	// ConditionTempGreaterThan は気温がしきい値を上回る条件。
	ConditionTempGreaterThan ConditionType = "temp_gt"
	// ConditionTempLessThan は気温がしきい値を下回る条件。
	ConditionTempLessThan ConditionType = "temp_lt"
	// ConditionRain は雨が観測される条件。
	ConditionRain ConditionType = "rain"
	// ConditionSnow は雪が観測される条件。
	ConditionSnow ConditionType = "snow"
)

// ParseConditionType は文字列を既知のConditionTypeに変換する。
// 未知の種別の場合はfalseを返す。
func ParseConditionType(s string) (ConditionType, bool) {
	switch ct := ConditionType(strings.TrimSpace(s)); ct {
	case ConditionTempGreaterThan, ConditionTempLessThan, ConditionRain, ConditionSnow:
		return ct, true
	default:
		return "", false
	}
}

// RequiresValue はしきい値（condition_value）が必須の条件かどうかを返す。
func (c ConditionType) RequiresValue() bool {
	return c == ConditionTempGreaterThan || c == ConditionTempLessThan
}

// Subscription はお気に入り地点に紐づく天気条件の購読を表す。
// (UserID, FavoriteID, ConditionType) の組はユーザーごとに一意。
type Subscription struct {
	ID             string
	UserID         string
	FavoriteID     string
	ConditionType  ConditionType
	ConditionValue *string
	IsActive       bool
	LastNotifiedAt *time.Time
	CreatedAt      time.Time
}

// SubscriptionWithFavorite は購読と紐づくお気に入り地点の情報を結合したもの。
type SubscriptionWithFavorite struct {
	Subscription
	LocationName string
	Latitude     float64
	Longitude    float64
}
