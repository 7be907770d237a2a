package repository

import "github.com/okian/trainboard/internal/domain/model"

// Option configures a store.
type Option func(*storeOptions)

type storeOptions struct {
	settings model.ScoringSettings
	members  []model.Member
}

func defaultStoreOptions() storeOptions {
	return storeOptions{settings: model.DefaultScoringSettings()}
}

// WithDefaultSettings seeds the settings used when none are stored yet.
func WithDefaultSettings(s model.ScoringSettings) Option {
	return func(o *storeOptions) {
		if s.Version < 1 {
			s.Version = 1
		}
		o.settings = s
	}
}

// WithMembers seeds the member directory of an empty store.
func WithMembers(members ...model.Member) Option {
	return func(o *storeOptions) {
		o.members = append(o.members, members...)
	}
}
