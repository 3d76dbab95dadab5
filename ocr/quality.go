package ocr

import (
	"github.com/tsawler/folio/internal/textutil"
	"github.com/tsawler/folio/model"
)

// QualityConfig holds the limits of CheckQuality
type QualityConfig struct {
	// CIDRatio is the share of words with a CID placeholder above which
	// the words are rejected
	CIDRatio float64 `yaml:"cid_ratio"`

	// UnreadableRatio is the share of words with an unreadable character
	// above which the words are rejected
	UnreadableRatio float64 `yaml:"unreadable_ratio"`
}

// DefaultQualityConfig returns sensible defaults
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		CIDRatio:        0.1,
		UnreadableRatio: 0.1,
	}
}

// CheckQuality returns ErrEmptyContent, ErrManyCID or ErrManyUnreadable
// when the words of l are not worth keeping, nil otherwise
func CheckQuality(l *model.Layout, config QualityConfig) error {
	if l == nil {
		return ErrEmptyContent
	}
	words := l.Words()
	if len(words) == 0 {
		return ErrEmptyContent
	}
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Content
	}
	if textutil.ExceedsRatio(texts, config.CIDRatio, textutil.HasCID) {
		return ErrManyCID
	}
	if textutil.ExceedsRatio(texts, config.UnreadableRatio, textutil.HasUnreadable) {
		return ErrManyUnreadable
	}
	return nil
}
