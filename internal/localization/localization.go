// Package localization renders notification titles and bodies in the
// device's language. Translations are keyed (language, template key) and can
// be refreshed from a remote translation service; built-in English templates
// serve as the fallback.
package localization

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wavesplatform/push-notifications/internal/model"
)

const FallbackLanguage = "en"

const (
	keyOrderFilledTitle     = "order_filled_title"
	keyOrderFilledBody      = "order_filled_body"
	keyOrderPartFilledTitle = "order_part_filled_title"
	keyOrderPartFilledBody  = "order_part_filled_body"
	keyPriceAlertTitle      = "price_alert_title"
	keyPriceAlertBody       = "price_alert_body"
)

var defaultTranslations = map[string]map[string]string{
	"en": {
		keyOrderFilledTitle:     "Order executed",
		keyOrderFilledBody:      "Your [%s:side] order for [%s:amountTicker]/[%s:priceTicker] has been fully executed",
		keyOrderPartFilledTitle: "Order partially executed",
		keyOrderPartFilledBody:  "Your [%s:side] order for [%s:amountTicker]/[%s:priceTicker] has been partially executed",
		keyPriceAlertTitle:      "Price alert",
		keyPriceAlertBody:       "[%s:amountTicker] price has reached [%s:threshold] [%s:priceTicker]",
	},
}

type Localizer struct {
	translations map[string]map[string]string
}

// New builds a localizer from (language -> key -> template) maps layered
// over the built-in defaults.
func New(translations map[string]map[string]string) *Localizer {
	merged := make(map[string]map[string]string, len(defaultTranslations)+len(translations))
	for lang, keys := range defaultTranslations {
		merged[lang] = make(map[string]string, len(keys))
		for k, v := range keys {
			merged[lang][k] = v
		}
	}
	for lang, keys := range translations {
		if merged[lang] == nil {
			merged[lang] = make(map[string]string, len(keys))
		}
		for k, v := range keys {
			merged[lang][k] = v
		}
	}
	return &Localizer{translations: merged}
}

// LoadRemote fetches translations from a Lokalise-style endpoint returning
// {"lang": {"key": "template"}} JSON. An empty URL yields the defaults.
func LoadRemote(ctx context.Context, url string) (*Localizer, error) {
	if url == "" {
		return New(nil), nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build translations request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch translations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch translations: unexpected status %d", resp.StatusCode)
	}

	var translations map[string]map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&translations); err != nil {
		return nil, fmt.Errorf("decode translations: %w", err)
	}
	return New(translations), nil
}

func (l *Localizer) OrderExecuted(lang string, side model.OrderSide, execution model.OrderExecution, amountTicker, priceTicker string) (title, body string) {
	titleKey, bodyKey := keyOrderFilledTitle, keyOrderFilledBody
	if execution == model.ExecutionPartial {
		titleKey, bodyKey = keyOrderPartFilledTitle, keyOrderPartFilledBody
	}
	subst := map[string]string{
		"side":         side.String(),
		"amountTicker": amountTicker,
		"priceTicker":  priceTicker,
	}
	return interpolate(l.lookup(lang, titleKey), subst), interpolate(l.lookup(lang, bodyKey), subst)
}

func (l *Localizer) PriceThreshold(lang string, amountTicker, priceTicker string, threshold decimal.Decimal) (title, body string) {
	subst := map[string]string{
		"amountTicker": amountTicker,
		"priceTicker":  priceTicker,
		"threshold":    threshold.String(),
	}
	return interpolate(l.lookup(lang, keyPriceAlertTitle), subst), interpolate(l.lookup(lang, keyPriceAlertBody), subst)
}

func (l *Localizer) lookup(lang, key string) string {
	if keys, ok := l.translations[lang]; ok {
		if tmpl, ok := keys[key]; ok {
			return tmpl
		}
	}
	return l.translations[FallbackLanguage][key]
}
