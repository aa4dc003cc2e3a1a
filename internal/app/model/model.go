// Package model holds the persisted entities and the constants shared across layers.
package model

// All returns every persisted model, in migration order.
func All() []any {
	return []any{
		&ShortLink{},
		&UrlUnlocker{},
		&SequenceUnlocker{},
		&BioCard{},
		&BioLink{},
		&SocialLink{},
		&ClickEvent{},
	}
}
