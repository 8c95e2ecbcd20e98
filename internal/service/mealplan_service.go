package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/internal/repository"
)

// ── meal plan errors ──

var (
	ErrMealPlanPersonNotFound = errors.New("no person is linked to this account")
	ErrMealPlanInvalidDates   = errors.New("start and end must be valid dates with end on or after start")
	ErrMealPlanWindowLocked   = errors.New("this period is locked, changes closed 5 days before it starts")
	ErrMealPlanInvalidWindow  = errors.New("start and end must match a planning period (1st-14th or 15th-end of month)")
	ErrMealPlanInvalidRange   = errors.New("from and to must be valid dates with to on or after from")
)

// StatusPendingPayment is reported for staff with at least one meal selected.
const StatusPendingPayment = "PENDING_PAYMENT"

// maxListRange bounds reporting queries.
const maxListRange = 93 * 24 * time.Hour

// Calendar slots per meal, local time.
var mealSlots = map[model.Meal][2]time.Duration{
	model.MealBreakfast: {7 * time.Hour, 9 * time.Hour},
	model.MealLunch:     {12 * time.Hour, 14 * time.Hour},
	model.MealDinner:    {19 * time.Hour, 21 * time.Hour},
}

// MealPlanService meal planning
type MealPlanService interface {
	// GetSelf returns the active window with the caller's selections.
	GetSelf(ctx context.Context, p Principal) (*dto.SelfPlanResponse, error)
	// SaveSelf replaces the caller's selections for one window.
	SaveSelf(ctx context.Context, p Principal, req *dto.SaveSelfPlanRequest) (*dto.SaveSelfPlanResponse, error)
	// SelfCalendar renders the caller's planned meals as an ICS feed.
	SelfCalendar(ctx context.Context, p Principal) ([]byte, error)
	List(ctx context.Context, req *dto.MealPlanListRequest) ([]dto.MealPlanResponse, int64, error)
	// Summary counts planned and consumed meals per day.
	Summary(ctx context.Context, req *dto.SummaryRequest) ([]dto.DaySummary, error)
	// ClearAll deletes every meal plan.
	ClearAll(ctx context.Context, p Principal) (int64, error)
}

type mealPlanService struct {
	repo   *repository.Repository
	clock  *clock
	logger *zap.Logger
}

// NewMealPlanService creates a MealPlanService.
func NewMealPlanService(repo *repository.Repository, clock *clock, logger *zap.Logger) MealPlanService {
	return &mealPlanService{repo: repo, clock: clock, logger: logger}
}

// resolvePerson finds the person whose matricule is the caller's username.
func (s *mealPlanService) resolvePerson(ctx context.Context, p Principal) (*model.Person, error) {
	matricule := strings.TrimSpace(p.Username)
	if matricule == "" {
		return nil, ErrMealPlanPersonNotFound
	}
	person, err := s.repo.Person.GetByMatricule(ctx, matricule)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMealPlanPersonNotFound
		}
		s.logger.Error("load person failed", zap.String("matricule", matricule), zap.Error(err))
		return nil, err
	}
	return person, nil
}

func planStatus(person *model.Person, selected int) *string {
	if person.Type == model.PersonStaff && selected > 0 {
		status := StatusPendingPayment
		return &status
	}
	return nil
}

// ────────────────────── GetSelf ──────────────────────

func (s *mealPlanService) GetSelf(ctx context.Context, p Principal) (*dto.SelfPlanResponse, error) {
	person, err := s.resolvePerson(ctx, p)
	if err != nil {
		return nil, err
	}

	w := ComputeWindow(s.clock.Today())
	choices := make(map[string]dto.MealChoice, len(w.Days()))
	for _, d := range w.Days() {
		choices[d.Format(model.DateLayout)] = dto.MealChoice{}
	}

	plans, err := s.repo.MealPlan.ListPlanned(ctx, person.PersonID, w.Start, w.End)
	if err != nil {
		s.logger.Error("list meal plans failed", zap.String("person_id", person.PersonID), zap.Error(err))
		return nil, err
	}

	selected := 0
	for _, mp := range plans {
		key := model.DateOnly(mp.Date).Format(model.DateLayout)
		choice, ok := choices[key]
		if !ok {
			continue
		}
		setChoice(&choice, mp.Meal, true)
		choices[key] = choice
		selected++
	}

	return &dto.SelfPlanResponse{
		Start:    w.Start.Format(model.DateLayout),
		End:      w.End.Format(model.DateLayout),
		Locked:   w.Locked,
		LockDate: w.LockDate().Format(model.DateLayout),
		Choices:  choices,
		Status:   planStatus(person, selected),
	}, nil
}

// ────────────────────── SaveSelf ──────────────────────

func (s *mealPlanService) SaveSelf(ctx context.Context, p Principal, req *dto.SaveSelfPlanRequest) (*dto.SaveSelfPlanResponse, error) {
	person, err := s.resolvePerson(ctx, p)
	if err != nil {
		return nil, err
	}

	start, okStart := parseDay(req.Start)
	end, okEnd := parseDay(req.End)
	if !okStart || !okEnd || end.Before(start) {
		return nil, ErrMealPlanInvalidDates
	}
	if !s.clock.Today().Before(LockDate(start)) {
		return nil, ErrMealPlanWindowLocked
	}
	if !IsCanonicalWindow(start, end) {
		return nil, ErrMealPlanInvalidWindow
	}

	var plans []model.MealPlan
	for _, d := range DaysIn(start, end) {
		choice, ok := req.Choices[d.Format(model.DateLayout)]
		if !ok {
			continue
		}
		for _, meal := range model.Meals {
			if choiceFor(choice, meal) {
				plans = append(plans, model.MealPlan{
					PersonID:  person.PersonID,
					Date:      d,
					Meal:      meal,
					Planned:   true,
					BaseModel: model.BaseModel{CreatedBy: optionalID(p.UserID), UpdatedBy: optionalID(p.UserID)},
				})
			}
		}
	}

	if err := s.repo.MealPlan.ReplaceRange(ctx, person.PersonID, start, end, plans); err != nil {
		s.logger.Error("replace meal plans failed",
			zap.String("person_id", person.PersonID),
			zap.String("start", req.Start),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("meal plans saved",
		zap.String("person_id", person.PersonID),
		zap.String("start", req.Start),
		zap.Int("created", len(plans)))

	return &dto.SaveSelfPlanResponse{
		OK:      true,
		Created: len(plans),
		Status:  planStatus(person, len(plans)),
	}, nil
}

// ────────────────────── SelfCalendar ──────────────────────

func (s *mealPlanService) SelfCalendar(ctx context.Context, p Principal) ([]byte, error) {
	person, err := s.resolvePerson(ctx, p)
	if err != nil {
		return nil, err
	}

	current := ComputeWindow(s.clock.Today())
	next := ComputeWindow(current.End.AddDate(0, 0, 1))
	plans, err := s.repo.MealPlan.ListPlanned(ctx, person.PersonID, current.Start, next.End)
	if err != nil {
		s.logger.Error("list meal plans failed", zap.String("person_id", person.PersonID), zap.Error(err))
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//cantine//meal plan//FR")
	cal.SetXWRCalName(fmt.Sprintf("Cantine - %s", person.Name))

	stamp := s.clock.Now()
	for _, mp := range plans {
		slot := mealSlots[mp.Meal]
		d := model.DateOnly(mp.Date)
		local := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.clock.loc)

		event := cal.AddEvent(fmt.Sprintf("%s-%s-%s@cantine", person.Matricule, d.Format("20060102"), mp.Meal))
		event.SetDtStampTime(stamp)
		event.SetStartAt(local.Add(slot[0]))
		event.SetEndAt(local.Add(slot[1]))
		event.SetSummary(mp.Meal.Label())
	}

	return []byte(cal.Serialize()), nil
}

// ────────────────────── List ──────────────────────

func (s *mealPlanService) List(ctx context.Context, req *dto.MealPlanListRequest) ([]dto.MealPlanResponse, int64, error) {
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, 0, err
	}
	meal, _ := model.ParseMeal(req.Meal)

	plans, total, err := s.repo.MealPlan.List(ctx, repository.MealPlanFilter{
		EstablishmentID: req.EstablishmentID,
		PersonID:        req.PersonID,
		Meal:            meal,
		From:            from,
		To:              to,
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list meal plans failed", zap.Error(err))
		return nil, 0, err
	}

	items := make([]dto.MealPlanResponse, 0, len(plans))
	for _, mp := range plans {
		item := dto.MealPlanResponse{
			ID:       mp.MealPlanID,
			PersonID: mp.PersonID,
			Date:     model.DateOnly(mp.Date).Format(model.DateLayout),
			Meal:     string(mp.Meal),
		}
		if mp.Person != nil {
			item.Matricule = mp.Person.Matricule
			item.Name = mp.Person.Name
		}
		items = append(items, item)
	}
	return items, total, nil
}

// ────────────────────── Summary ──────────────────────

func (s *mealPlanService) Summary(ctx context.Context, req *dto.SummaryRequest) ([]dto.DaySummary, error) {
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	if from.IsZero() || to.IsZero() {
		w := ComputeWindow(s.clock.Today())
		from, to = w.Start, w.End
	}
	if to.Sub(from) > maxListRange {
		return nil, ErrMealPlanInvalidRange
	}

	planned, err := s.repo.MealPlan.CountByDay(ctx, req.EstablishmentID, from, to)
	if err != nil {
		s.logger.Error("count meal plans failed", zap.Error(err))
		return nil, err
	}
	consumed, err := s.repo.MealConsumption.CountByDay(ctx, req.EstablishmentID, from, to)
	if err != nil {
		s.logger.Error("count consumptions failed", zap.Error(err))
		return nil, err
	}

	days := make([]dto.DaySummary, 0)
	index := make(map[string]int)
	for _, d := range DaysIn(from, to) {
		key := d.Format(model.DateLayout)
		index[key] = len(days)
		days = append(days, dto.DaySummary{Date: key, Planned: emptyMealCounts(), Consumed: emptyMealCounts()})
	}
	for _, c := range planned {
		if i, ok := index[model.DateOnly(c.Date).Format(model.DateLayout)]; ok {
			days[i].Planned[string(c.Meal)] = int(c.Count)
		}
	}
	for _, c := range consumed {
		if i, ok := index[model.DateOnly(c.Date).Format(model.DateLayout)]; ok {
			days[i].Consumed[string(c.Meal)] = int(c.Count)
		}
	}
	return days, nil
}

func emptyMealCounts() map[string]int {
	counts := make(map[string]int, len(model.Meals))
	for _, m := range model.Meals {
		counts[string(m)] = 0
	}
	return counts
}

// ────────────────────── ClearAll ──────────────────────

func (s *mealPlanService) ClearAll(ctx context.Context, p Principal) (int64, error) {
	deleted, err := s.repo.MealPlan.DeleteAll(ctx)
	if err != nil {
		s.logger.Error("clear meal plans failed", zap.Error(err))
		return 0, err
	}
	s.logger.Warn("all meal plans cleared", zap.String("by", p.UserID), zap.Int64("deleted", deleted))
	return deleted, nil
}

// ── helpers ──

func choiceFor(c dto.MealChoice, meal model.Meal) bool {
	switch meal {
	case model.MealBreakfast:
		return c.PetitDej
	case model.MealLunch:
		return c.Dej
	case model.MealDinner:
		return c.Diner
	}
	return false
}

func setChoice(c *dto.MealChoice, meal model.Meal, v bool) {
	switch meal {
	case model.MealBreakfast:
		c.PetitDej = v
	case model.MealLunch:
		c.Dej = v
	case model.MealDinner:
		c.Diner = v
	}
}

// parseDay accepts "2006-01-02" or an RFC 3339 timestamp and returns the
// UTC-midnight date.
func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return model.DateOnly(t.UTC()), true
	}
	return time.Time{}, false
}

// parseRange parses optional from/to query values.
func parseRange(fromS, toS string) (from, to time.Time, err error) {
	if fromS != "" {
		var ok bool
		if from, ok = parseDay(fromS); !ok {
			return from, to, ErrMealPlanInvalidRange
		}
	}
	if toS != "" {
		var ok bool
		if to, ok = parseDay(toS); !ok {
			return from, to, ErrMealPlanInvalidRange
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, ErrMealPlanInvalidRange
	}
	return from, to, nil
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
