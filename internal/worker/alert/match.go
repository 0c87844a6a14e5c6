// Package alert はお気に入り地点の天気を購読条件と照合し、通知するワーカーを提供する。
package alert

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hitoshi/tenki/internal/model"
)

// Observation は条件判定に使う現在の天気。
// MainはOpenWeatherMapの天気グループ（"Rain", "Snow", "Clear" など）。
type Observation struct {
	TempC float64
	Main  string
}

// Match は観測値が購読条件を満たすかを判定する。副作用はない。
// temp_gt/temp_ltはしきい値と厳密比較し、rainは雨・霧雨・雷雨、snowは雪で成立する。
func Match(ct model.ConditionType, value *string, obs Observation) (bool, error) {
	switch ct {
	case model.ConditionTempGreaterThan, model.ConditionTempLessThan:
		threshold, err := parseThreshold(value)
		if err != nil {
			return false, err
		}
		if ct == model.ConditionTempGreaterThan {
			return obs.TempC > threshold, nil
		}
		return obs.TempC < threshold, nil
	case model.ConditionRain:
		switch obs.Main {
		case "Rain", "Drizzle", "Thunderstorm":
			return true, nil
		}
		return false, nil
	case model.ConditionSnow:
		return obs.Main == "Snow", nil
	default:
		return false, fmt.Errorf("unknown condition type: %q", ct)
	}
}

func parseThreshold(value *string) (float64, error) {
	if value == nil {
		return 0, fmt.Errorf("threshold is required")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold %q: %w", *value, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid threshold %q: not finite", *value)
	}
	return v, nil
}
