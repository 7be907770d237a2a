package model

// ScoringSettings is the global, admin-editable scoring configuration.
// Version increases on every successful update.
type ScoringSettings struct {
	Version                      int    `json:"version" yaml:"version" koanf:"version"`
	AwardFirstPoints             int    `json:"award_first_points" yaml:"award_first_points" koanf:"award_first_points" validate:"gte=0"`
	AwardSecondPoints            int    `json:"award_second_points" yaml:"award_second_points" koanf:"award_second_points" validate:"gte=0"`
	AwardThirdPoints             int    `json:"award_third_points" yaml:"award_third_points" koanf:"award_third_points" validate:"gte=0"`
	R4R5RankBoost                int    `json:"r4r5_rank_boost" yaml:"r4r5_rank_boost" koanf:"r4r5_rank_boost" validate:"gte=0"`
	FirstTimeConductorBoost      int    `json:"first_time_conductor_boost" yaml:"first_time_conductor_boost" koanf:"first_time_conductor_boost" validate:"gte=0"`
	RecentConductorPenaltyDays   int    `json:"recent_conductor_penalty_days" yaml:"recent_conductor_penalty_days" koanf:"recent_conductor_penalty_days" validate:"gte=0"`
	AboveAverageConductorPenalty int    `json:"above_average_conductor_penalty" yaml:"above_average_conductor_penalty" koanf:"above_average_conductor_penalty" validate:"gte=0"`
	ScheduleMessageTemplate      string `json:"schedule_message_template" yaml:"schedule_message_template" koanf:"schedule_message_template"`
	DailyMessageTemplate         string `json:"daily_message_template" yaml:"daily_message_template" koanf:"daily_message_template"`
}

// AwardPoints returns the configured points for a placement, or false when
// the placement is not 1, 2 or 3.
func (s ScoringSettings) AwardPoints(placement int) (int, bool) {
	switch placement {
	case 1:
		return s.AwardFirstPoints, true
	case 2:
		return s.AwardSecondPoints, true
	case 3:
		return s.AwardThirdPoints, true
	}
	return 0, false
}

// Message templates seeded into fresh settings.
const (
	DefaultScheduleMessageTemplate = "Train Schedule - Week {WEEK}\n\n{SCHEDULES}\n\nNext in line:\n{NEXT_3}"
	DefaultDailyMessageTemplate    = "Daily Train Assignment\n\nDate: {DATE}\n\n" +
		"Conductor: {CONDUCTOR_NAME} ({CONDUCTOR_RANK})\n" +
		"Backup: {BACKUP_NAME} ({BACKUP_RANK})\n\n" +
		"15:00 ST - {CONDUCTOR_NAME} requests the train in alliance chat.\n" +
		"16:30 ST - if the conductor is missing, {BACKUP_NAME} takes over."
)

// DefaultScoringSettings mirrors the values a fresh alliance starts with.
func DefaultScoringSettings() ScoringSettings {
	return ScoringSettings{
		Version:                      1,
		AwardFirstPoints:             3,
		AwardSecondPoints:            2,
		AwardThirdPoints:             1,
		R4R5RankBoost:                5,
		FirstTimeConductorBoost:      5,
		RecentConductorPenaltyDays:   30,
		AboveAverageConductorPenalty: 10,
		ScheduleMessageTemplate:      DefaultScheduleMessageTemplate,
		DailyMessageTemplate:         DefaultDailyMessageTemplate,
	}
}
