package service

import (
	"encoding/json"
	"html"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/campuskart/campuskart/internal/imagestore"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/microcosm-cc/bluemonday"
)

const (
	maxTitleLength       = 120
	maxDescriptionLength = 2000
	maxPrice             = 10_000_000
)

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText strips markup and surrounding whitespace. The result is plain
// text: entities the policy emits are decoded, so renderers must escape it.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func validateTitle(raw string) (string, error) {
	title := sanitizeText(raw)
	if title == "" {
		return "", invalid("title", "is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", invalid("title", "must be at most 120 characters")
	}
	return title, nil
}

func validateDescription(raw string) (string, error) {
	desc := sanitizeText(raw)
	if desc == "" {
		return "", invalid("description", "is required")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLength {
		return "", invalid("description", "must be at most 2000 characters")
	}
	return desc, nil
}

func validateCategory(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", invalid("category", "is required")
	}
	category, ok := model.NormalizeCategory(raw)
	if !ok {
		return "", invalid("category", "is not a known category")
	}
	return category, nil
}

func validateImage(raw string, maxBytes int64) (*imagestore.Image, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, invalid("image", "is required")
	}
	img, err := imagestore.DecodeImage(raw, maxBytes)
	if err != nil {
		return nil, invalid("image", err.Error())
	}
	return img, nil
}

// ParsePrice accepts a JSON number or a numeric string and returns a positive
// finite price rounded to cents.
func ParsePrice(v any) (float64, error) {
	var (
		price float64
		err   error
	)

	switch p := v.(type) {
	case nil:
		return 0, invalid("price", "is required")
	case float64:
		price = p
	case int:
		price = float64(p)
	case json.Number:
		price, err = p.Float64()
	case string:
		s := strings.TrimSpace(p)
		if s == "" {
			return 0, invalid("price", "is required")
		}
		price, err = strconv.ParseFloat(s, 64)
	default:
		return 0, invalid("price", "must be a number")
	}

	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, invalid("price", "must be a number")
	}
	price = math.Round(price*100) / 100
	if price <= 0 {
		return 0, invalid("price", "must be greater than zero")
	}
	if price > maxPrice {
		return 0, invalid("price", "is too large")
	}
	return price, nil
}
