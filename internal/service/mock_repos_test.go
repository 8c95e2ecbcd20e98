package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cantine/config"
	"cantine/internal/model"
	"cantine/internal/repository"
	pkgerrors "cantine/pkg/errors"
)

// ── Mock EstablishmentRepository ──

type mockEstablishmentRepo struct {
	establishments map[string]*model.Establishment
	personCounts   map[string]int64
}

func newMockEstablishmentRepo() *mockEstablishmentRepo {
	return &mockEstablishmentRepo{
		establishments: map[string]*model.Establishment{
			"est-1": {EstablishmentID: "est-1", Name: "Campus Nord"},
		},
		personCounts: make(map[string]int64),
	}
}

func (m *mockEstablishmentRepo) Create(_ context.Context, est *model.Establishment) error {
	if est.EstablishmentID == "" {
		est.EstablishmentID = "est-" + est.Name
	}
	m.establishments[est.EstablishmentID] = est
	return nil
}

func (m *mockEstablishmentRepo) GetByID(_ context.Context, id string) (*model.Establishment, error) {
	if e, ok := m.establishments[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEstablishmentRepo) GetByName(_ context.Context, name string) (*model.Establishment, error) {
	for _, e := range m.establishments {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEstablishmentRepo) List(_ context.Context) ([]model.Establishment, error) {
	var result []model.Establishment
	for _, e := range m.establishments {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockEstablishmentRepo) Update(_ context.Context, est *model.Establishment) error {
	m.establishments[est.EstablishmentID] = est
	return nil
}

func (m *mockEstablishmentRepo) Delete(_ context.Context, id string) error {
	delete(m.establishments, id)
	return nil
}

func (m *mockEstablishmentRepo) CountPersons(_ context.Context, id string) (int64, error) {
	return m.personCounts[id], nil
}

// ── Mock PersonRepository ──

type mockPersonRepo struct {
	mu      sync.Mutex
	persons map[string]*model.Person // key: person_id
	seq     int
}

func newMockPersonRepo() *mockPersonRepo {
	return &mockPersonRepo{persons: make(map[string]*model.Person)}
}

func (m *mockPersonRepo) add(p *model.Person) *model.Person {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.PersonID == "" {
		m.seq++
		p.PersonID = fmt.Sprintf("person-%d", m.seq)
	}
	if p.Version == 0 {
		p.Version = 1
	}
	m.persons[p.PersonID] = p
	return p
}

func (m *mockPersonRepo) Create(_ context.Context, p *model.Person) error {
	for _, existing := range m.persons {
		if existing.Matricule == p.Matricule {
			return gorm.ErrDuplicatedKey
		}
	}
	m.add(p)
	return nil
}

func (m *mockPersonRepo) GetByID(_ context.Context, id string) (*model.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.persons[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPersonRepo) GetByMatricule(_ context.Context, matricule string) (*model.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.persons {
		if p.Matricule == matricule {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPersonRepo) GetByEmail(_ context.Context, email string) (*model.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.persons {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPersonRepo) List(_ context.Context, filter repository.PersonFilter, offset, limit int) ([]model.Person, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Person
	for _, p := range m.persons {
		if filter.EstablishmentID != "" && p.EstablishmentID != filter.EstablishmentID {
			continue
		}
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		if filter.Search != "" && !strings.HasPrefix(p.Matricule, filter.Search) && !strings.Contains(p.Name, filter.Search) {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Matricule < all[j].Matricule })
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockPersonRepo) Update(_ context.Context, p *model.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.persons[p.PersonID]
	if !ok || stored.Version != p.Version {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version++
	cp := *p
	m.persons[p.PersonID] = &cp
	return nil
}

func (m *mockPersonRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.persons, id)
	return nil
}

func (m *mockPersonRepo) UpsertByMatricule(_ context.Context, p *model.Person) (bool, error) {
	m.mu.Lock()
	for _, existing := range m.persons {
		if existing.Matricule == p.Matricule {
			existing.Name = p.Name
			existing.Email = p.Email
			existing.EstablishmentID = p.EstablishmentID
			existing.Type = p.Type
			existing.StudentYear = p.StudentYear
			existing.Version++
			p.PersonID = existing.PersonID
			p.Version = existing.Version
			m.mu.Unlock()
			return false, nil
		}
	}
	m.mu.Unlock()
	cp := *p
	m.add(&cp)
	p.PersonID = cp.PersonID
	p.Version = cp.Version
	return true, nil
}

// ── Mock MealPlanRepository ──

type planKey struct {
	personID string
	date     string
	meal     model.Meal
}

func keyOf(personID string, date time.Time, meal model.Meal) planKey {
	return planKey{personID: personID, date: model.DateOnly(date).Format(model.DateLayout), meal: meal}
}

type mockMealPlanRepo struct {
	mu      sync.Mutex
	plans   map[planKey]model.MealPlan
	persons *mockPersonRepo
	// replaceErr makes ReplaceRange fail after staging, to check atomicity.
	replaceErr error
}

func newMockMealPlanRepo(persons *mockPersonRepo) *mockMealPlanRepo {
	return &mockMealPlanRepo{plans: make(map[planKey]model.MealPlan), persons: persons}
}

func (m *mockMealPlanRepo) ListPlanned(_ context.Context, personID string, from, to time.Time) ([]model.MealPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.MealPlan
	for _, mp := range m.plans {
		if mp.PersonID == personID && mp.Planned && inRange(mp.Date, from, to) {
			result = append(result, mp)
		}
	}
	sortPlans(result)
	return result, nil
}

func (m *mockMealPlanRepo) IsPlanned(_ context.Context, personID string, date time.Time, meal model.Meal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mp, ok := m.plans[keyOf(personID, date, meal)]
	return ok && mp.Planned, nil
}

func (m *mockMealPlanRepo) ReplaceRange(_ context.Context, personID string, from, to time.Time, plans []model.MealPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[planKey]model.MealPlan, len(m.plans))
	for k, mp := range m.plans {
		if mp.PersonID == personID && inRange(mp.Date, from, to) {
			continue
		}
		staged[k] = mp
	}
	for _, mp := range plans {
		k := keyOf(mp.PersonID, mp.Date, mp.Meal)
		if _, dup := staged[k]; dup {
			return gorm.ErrDuplicatedKey
		}
		mp.MealPlanID = fmt.Sprintf("plan-%s-%s-%s", k.personID, k.date, k.meal)
		staged[k] = mp
	}
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.plans = staged
	return nil
}

func (m *mockMealPlanRepo) Upsert(_ context.Context, personID string, date time.Time, meal model.Meal, actorID *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := keyOf(personID, date, meal)
	mp, exists := m.plans[k]
	if exists {
		mp.Planned = true
		mp.UpdatedBy = actorID
		m.plans[k] = mp
		return false, nil
	}
	m.plans[k] = model.MealPlan{
		MealPlanID: fmt.Sprintf("plan-%s-%s-%s", k.personID, k.date, k.meal),
		PersonID:   personID,
		Date:       model.DateOnly(date),
		Meal:       meal,
		Planned:    true,
		BaseModel:  model.BaseModel{CreatedBy: actorID, UpdatedBy: actorID},
	}
	return true, nil
}

func (m *mockMealPlanRepo) filtered(filter repository.MealPlanFilter) []model.MealPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.MealPlan
	for _, mp := range m.plans {
		if !mp.Planned {
			continue
		}
		if filter.PersonID != "" && mp.PersonID != filter.PersonID {
			continue
		}
		if filter.Meal != "" && mp.Meal != filter.Meal {
			continue
		}
		if !inRange(mp.Date, filter.From, filter.To) {
			continue
		}
		if m.persons != nil {
			person, err := m.persons.GetByID(context.Background(), mp.PersonID)
			if err != nil {
				continue
			}
			if filter.EstablishmentID != "" && person.EstablishmentID != filter.EstablishmentID {
				continue
			}
			mp.Person = person
		}
		result = append(result, mp)
	}
	sortPlans(result)
	return result
}

func (m *mockMealPlanRepo) List(_ context.Context, filter repository.MealPlanFilter, offset, limit int) ([]model.MealPlan, int64, error) {
	all := m.filtered(filter)
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockMealPlanRepo) ListWithPersons(_ context.Context, filter repository.MealPlanFilter) ([]model.MealPlan, error) {
	return m.filtered(filter), nil
}

func (m *mockMealPlanRepo) CountByDay(_ context.Context, establishmentID string, from, to time.Time) ([]repository.DayMealCount, error) {
	return countByDay(m.filtered(repository.MealPlanFilter{EstablishmentID: establishmentID, From: from, To: to}), func(mp model.MealPlan) (time.Time, model.Meal) {
		return mp.Date, mp.Meal
	}), nil
}

func (m *mockMealPlanRepo) DeleteAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.plans))
	m.plans = make(map[planKey]model.MealPlan)
	return n, nil
}

func (m *mockMealPlanRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.plans)
}

// ── Mock MealConsumptionRepository ──

type mockConsumptionRepo struct {
	mu    sync.Mutex
	rows  map[planKey]model.MealConsumption
	order []planKey
}

func newMockConsumptionRepo() *mockConsumptionRepo {
	return &mockConsumptionRepo{rows: make(map[planKey]model.MealConsumption)}
}

func (m *mockConsumptionRepo) Create(_ context.Context, c *model.MealConsumption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := keyOf(c.PersonID, c.Date, c.Meal)
	if _, dup := m.rows[k]; dup {
		return gorm.ErrDuplicatedKey
	}
	c.MealConsumptionID = fmt.Sprintf("mc-%d", len(m.order)+1)
	m.rows[k] = *c
	m.order = append(m.order, k)
	return nil
}

func (m *mockConsumptionRepo) Get(_ context.Context, personID string, date time.Time, meal model.Meal) (*model.MealConsumption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.rows[keyOf(personID, date, meal)]; ok {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockConsumptionRepo) List(_ context.Context, filter repository.ConsumptionFilter, offset, limit int) ([]model.MealConsumption, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.MealConsumption
	for _, k := range m.order {
		c := m.rows[k]
		if filter.PersonID != "" && c.PersonID != filter.PersonID {
			continue
		}
		if filter.Meal != "" && c.Meal != filter.Meal {
			continue
		}
		if !inRange(c.Date, filter.From, filter.To) {
			continue
		}
		all = append(all, c)
	}
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockConsumptionRepo) CountByDay(_ context.Context, _ string, from, to time.Time) ([]repository.DayMealCount, error) {
	m.mu.Lock()
	var rows []model.MealConsumption
	for _, c := range m.rows {
		if inRange(c.Date, from, to) {
			rows = append(rows, c)
		}
	}
	m.mu.Unlock()
	return countByDay(rows, func(c model.MealConsumption) (time.Time, model.Meal) {
		return c.Date, c.Meal
	}), nil
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = "user-" + user.Username
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, role string, offset, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			all = append(all, *u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, hash string, mustChange bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	u.MustChangePassword = mustChange
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

// ── Mock ImportJobRepository ──

type mockImportJobRepo struct {
	jobs []model.ImportJob
}

func (m *mockImportJobRepo) Create(_ context.Context, job *model.ImportJob) error {
	job.ImportJobID = fmt.Sprintf("job-%d", len(m.jobs)+1)
	job.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.jobs = append(m.jobs, *job)
	return nil
}

func (m *mockImportJobRepo) List(_ context.Context, offset, limit int) ([]model.ImportJob, int64, error) {
	total := int64(len(m.jobs))
	if offset > len(m.jobs) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(m.jobs) {
		end = len(m.jobs)
	}
	return m.jobs[offset:end], total, nil
}

// ── helpers ──

func inRange(d, from, to time.Time) bool {
	d = model.DateOnly(d)
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

func sortPlans(plans []model.MealPlan) {
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].Date.Equal(plans[j].Date) {
			return plans[i].Date.Before(plans[j].Date)
		}
		if plans[i].PersonID != plans[j].PersonID {
			return plans[i].PersonID < plans[j].PersonID
		}
		return plans[i].Meal < plans[j].Meal
	})
}

func countByDay[T any](rows []T, key func(T) (time.Time, model.Meal)) []repository.DayMealCount {
	counts := make(map[planKey]int64)
	for _, r := range rows {
		d, meal := key(r)
		counts[keyOf("", d, meal)]++
	}
	result := make([]repository.DayMealCount, 0, len(counts))
	for k, n := range counts {
		d, _ := time.Parse(model.DateLayout, k.date)
		result = append(result, repository.DayMealCount{Date: d, Meal: k.meal, Count: n})
	}
	return result
}

// ── test fixture ──

type fixture struct {
	persons        *mockPersonRepo
	plans          *mockMealPlanRepo
	consumptions   *mockConsumptionRepo
	users          *mockUserRepo
	establishments *mockEstablishmentRepo
	jobs           *mockImportJobRepo
	repo           *repository.Repository
	cfg            *config.Config
	now            time.Time
	clock          *clock
	logger         *zap.Logger
}

// newFixture builds mock repositories and a clock frozen at now (Paris time).
func newFixture(now time.Time) *fixture {
	persons := newMockPersonRepo()
	f := &fixture{
		persons:        persons,
		plans:          newMockMealPlanRepo(persons),
		consumptions:   newMockConsumptionRepo(),
		users:          newMockUserRepo(),
		establishments: newMockEstablishmentRepo(),
		jobs:           &mockImportJobRepo{},
		now:            now,
		logger:         zap.NewNop(),
		cfg: &config.Config{
			Auth: config.AuthConfig{
				JWTSecret:       "test-secret-key-for-unit-testing",
				AccessTokenTTL:  15 * time.Minute,
				RefreshTokenTTL: 24 * time.Hour,
			},
			MealPlan: config.MealPlanConfig{
				Timezone:       "Europe/Paris",
				BreakfastUntil: "10:00",
				LunchUntil:     "15:00",
			},
			Import: config.ImportConfig{
				MaxRows:               5000,
				DefaultPasswordPrefix: "Ct",
			},
		},
	}
	f.repo = &repository.Repository{
		Establishment:   f.establishments,
		Person:          f.persons,
		MealPlan:        f.plans,
		MealConsumption: f.consumptions,
		User:            f.users,
		ImportJob:       f.jobs,
	}
	f.clock = newClock(&f.cfg.MealPlan, func() time.Time { return f.now })
	return f
}

func (f *fixture) addPerson(matricule, name string, typ model.PersonType) *model.Person {
	return f.persons.add(&model.Person{
		Matricule:       matricule,
		Name:            name,
		EstablishmentID: "est-1",
		Type:            typ,
	})
}

func paris(y int, m time.Month, d, hh, mm int) time.Time {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		panic(err)
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func allConsumptions() repository.ConsumptionFilter { return repository.ConsumptionFilter{} }
