// Package messages renders the alliance chat announcements for a schedule.
//
// Templates use brace placeholders such as {WEEK} that admins edit in the
// scoring settings.
package messages

import (
	"strings"
	"time"

	"github.com/okian/trainboard/internal/domain/model"
)

// Placeholder tokens.
const (
	TokenWeek          = "{WEEK}"
	TokenSchedules     = "{SCHEDULES}"
	TokenNext3         = "{NEXT_3}"
	TokenDate          = "{DATE}"
	TokenConductorName = "{CONDUCTOR_NAME}"
	TokenConductorRank = "{CONDUCTOR_RANK}"
	TokenBackupName    = "{BACKUP_NAME}"
	TokenBackupRank    = "{BACKUP_RANK}"
	TokenName          = "{NAME}"
	TokenDay           = "{DAY}"
)

// Unassigned is rendered for an empty slot.
const Unassigned = "TBD"

// NextCount is the number of upcoming candidates listed in the weekly message.
const NextCount = 3

const (
	weekLayout     = "Jan 2, 2006"
	dailyLayout    = "Monday, Jan 2, 2006"
	reminderLayout = "January 2"
)

// Weekly renders the weekly schedule announcement. next lists the
// leaderboard candidates; the first three are shown.
func Weekly(template string, weekStart time.Time, assignments []model.Assignment, next []model.RankingEntry) string {
	var sched strings.Builder
	for _, a := range assignments {
		if a.Conductor == nil {
			continue
		}
		sched.WriteString(a.Date.Format("Monday"))
		sched.WriteString(": ")
		sched.WriteString(a.Conductor.Name)
		sched.WriteString(" (Backup: ")
		sched.WriteString(refName(a.Backup))
		sched.WriteString(")\n")
	}

	var upcoming strings.Builder
	for i, e := range next {
		if i == NextCount {
			break
		}
		upcoming.WriteString(e.Member.Name)
		upcoming.WriteString("\n")
	}

	return strings.NewReplacer(
		TokenWeek, weekStart.Format(weekLayout),
		TokenSchedules, sched.String(),
		TokenNext3, upcoming.String(),
	).Replace(template)
}

// Daily renders the announcement for a single day.
func Daily(template string, a model.Assignment) string {
	return strings.NewReplacer(
		TokenDate, a.Date.Format(dailyLayout),
		TokenConductorName, refName(a.Conductor),
		TokenConductorRank, refRank(a.Conductor),
		TokenBackupName, refName(a.Backup),
		TokenBackupRank, refRank(a.Backup),
	).Replace(template)
}

// Reminder is a direct message for one conductor.
type Reminder struct {
	Date    time.Time `json:"date"`
	Day     string    `json:"day"`
	Name    string    `json:"name"`
	Message string    `json:"message"`
}

var reminderTemplates = []string{
	"Hi {NAME}! You're the train conductor on {DAY}, {DATE}. Please be online around 15:00 ST and ask for the train in alliance chat. If something comes up, tell us early so the backup can prepare.",
	"Hi {NAME}! Quick reminder: train conductor duty on {DAY}, {DATE}. Be online at 15:00 ST and request the train in alliance chat. A phone reminder helps!",
	"Hi {NAME}! You're scheduled to conduct the train on {DAY}, {DATE}. Please request it in alliance chat at 15:00 ST. Need to swap? Reach out in advance.",
	"Hi {NAME}! Heads-up: you're conducting on {DAY}, {DATE}. Please be online at 15:00 ST and ask for the train assignment in alliance chat. Thanks for stepping up!",
	"Hi {NAME}! Conductor duty for you on {DAY}, {DATE}. Be around at 15:00 ST and request the train in alliance chat. Let us know early if plans change.",
	"Hi {NAME}! Reminder that {DAY}, {DATE} is your train day. Request the train in alliance chat at 15:00 ST. Set a reminder so you don't miss it.",
	"Hi {NAME}! You're on train duty {DAY}, {DATE}. Please be online at 15:00 ST and ask in alliance chat for the train. Thanks for helping the alliance!",
}

// ConductorReminders renders one reminder per assigned conductor, cycling
// through the reminder variants in date order.
func ConductorReminders(assignments []model.Assignment) []Reminder {
	out := make([]Reminder, 0, len(assignments))
	for _, a := range assignments {
		if a.Conductor == nil {
			continue
		}
		tpl := reminderTemplates[len(out)%len(reminderTemplates)]
		day := a.Date.Format("Monday")
		out = append(out, Reminder{
			Date: a.Date,
			Day:  day,
			Name: a.Conductor.Name,
			Message: strings.NewReplacer(
				TokenName, a.Conductor.Name,
				TokenDay, day,
				TokenDate, a.Date.Format(reminderLayout),
			).Replace(tpl),
		})
	}
	return out
}

func refName(r *model.Ref) string {
	if r == nil {
		return Unassigned
	}
	return r.Name
}

func refRank(r *model.Ref) string {
	if r == nil {
		return "-"
	}
	return string(r.Rank)
}
