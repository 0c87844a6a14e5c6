// Package forecast は3時間刻みの予報サンプルを日別サマリに集約する。
package forecast

import (
	"math"
	"sort"
	"strings"
	"time"
)

// representativeTime は日別の代表サンプルとして優先する時刻。
const representativeTime = "15:00:00"

// Sample は上流プロバイダが返す3時間刻みの予報1件を表す。
// TimestampLocalは "YYYY-MM-DD HH:MM:SS" 形式。
type Sample struct {
	TimestampLocal string
	TemperatureC   float64
	Description    string
	IconCode       string
}

// DailySummary は1日分の集約結果。
// TempMinC <= TempMaxC が常に成り立ち、IconCodeは夜間用アイコンを含まない。
type DailySummary struct {
	Date        string  `json:"date"`
	TempMinC    float64 `json:"temp_min"`
	TempMaxC    float64 `json:"temp_max"`
	Description string  `json:"description"`
	IconCode    string  `json:"icon"`
}

// Aggregate はサンプルを日付ごとにまとめ、todayLocalDateを除いた
// 翌日以降の最大maxDays日分のサマリを日付の昇順で返す。
// 該当日がない場合は空スライスを返す。
func Aggregate(samples []Sample, todayLocalDate string, maxDays int) []DailySummary {
	summaries := []DailySummary{}
	if maxDays <= 0 {
		return summaries
	}

	buckets := make(map[string][]Sample)
	for _, s := range samples {
		date, _, ok := splitTimestamp(s.TimestampLocal)
		if !ok || date == todayLocalDate {
			continue
		}
		buckets[date] = append(buckets[date], s)
	}

	dates := make([]string, 0, len(buckets))
	for d := range buckets {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, d := range dates {
		if len(summaries) >= maxDays {
			break
		}
		bucket := buckets[d]
		if len(bucket) == 0 {
			continue
		}
		summaries = append(summaries, summarize(d, bucket))
	}
	return summaries
}

func summarize(date string, bucket []Sample) DailySummary {
	minT, maxT := bucket[0].TemperatureC, bucket[0].TemperatureC
	for _, s := range bucket[1:] {
		minT = math.Min(minT, s.TemperatureC)
		maxT = math.Max(maxT, s.TemperatureC)
	}

	rep := representative(bucket)
	return DailySummary{
		Date:        date,
		TempMinC:    roundOneDecimal(minT),
		TempMaxC:    roundOneDecimal(maxT),
		Description: rep.Description,
		IconCode:    DayIcon(rep.IconCode),
	}
}

// representative は15:00のサンプルを返し、なければ中央のサンプルを返す。
func representative(bucket []Sample) Sample {
	for _, s := range bucket {
		if _, clock, ok := splitTimestamp(s.TimestampLocal); ok && clock == representativeTime {
			return s
		}
	}
	return bucket[len(bucket)/2]
}

// DayIcon は夜間用アイコンコード（末尾 "n"）を昼間用（末尾 "d"）に変換する。
func DayIcon(icon string) string {
	if strings.HasSuffix(icon, "n") {
		return strings.TrimSuffix(icon, "n") + "d"
	}
	return icon
}

// splitTimestamp は日付部分が暦日として解釈できる場合のみokを返す。
func splitTimestamp(ts string) (date, clock string, ok bool) {
	date, clock, _ = strings.Cut(strings.TrimSpace(ts), " ")
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", "", false
	}
	return date, clock, true
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
