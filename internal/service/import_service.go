package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cantine/config"
	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/internal/repository"
	"cantine/internal/sheet"
)

// ── import errors ──

var (
	ErrImportEmptyFile           = errors.New("uploaded file is empty")
	ErrImportUnreadable          = errors.New("uploaded file is not a readable .xlsx or .csv spreadsheet")
	ErrImportUnknownKind         = errors.New("kind must be plans, students or staff")
	ErrImportTooManyRows         = errors.New("spreadsheet has too many rows")
	ErrImportEstablishmentNeeded = errors.New("establishment_id is required to import people")
	ErrImportEstablishmentGone   = errors.New("establishment not found")
)

// Import kinds.
const (
	ImportPlans    = "plans"
	ImportStudents = "students"
	ImportStaff    = "staff"
)

// Row issue reasons.
const (
	reasonMissingMatricule = "missing matricule"
	reasonUnknownMatricule = "unknown matricule"
	reasonMissingName      = "missing name"
	reasonStorage          = "could not be saved"
)

// ImportRequest an uploaded spreadsheet
type ImportRequest struct {
	Kind            string
	Filename        string
	Data            []byte
	EstablishmentID string
}

// ImportService spreadsheet imports
type ImportService interface {
	// Import maps the spreadsheet and upserts its rows one by one. Rows that
	// cannot be applied are reported as issues; earlier rows stay applied.
	Import(ctx context.Context, p Principal, req *ImportRequest) (*dto.ImportResponse, error)
	ListJobs(ctx context.Context, page *dto.PaginationRequest) ([]dto.ImportJobResponse, int64, error)
}

type importService struct {
	cfg     *config.ImportConfig
	repo    *repository.Repository
	archive Archiver
	logger  *zap.Logger
}

// NewImportService creates an ImportService. archive may be nil.
func NewImportService(cfg *config.ImportConfig, repo *repository.Repository, archive Archiver, logger *zap.Logger) ImportService {
	return &importService{cfg: cfg, repo: repo, archive: archive, logger: logger}
}

// ────────────────────── Import ──────────────────────

func (s *importService) Import(ctx context.Context, p Principal, req *ImportRequest) (*dto.ImportResponse, error) {
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind == "" {
		kind = ImportPlans
	}
	if kind != ImportPlans && kind != ImportStudents && kind != ImportStaff {
		return nil, ErrImportUnknownKind
	}
	if len(req.Data) == 0 {
		return nil, ErrImportEmptyFile
	}

	sheets, err := sheet.Decode(req.Filename, req.Data)
	if err != nil {
		if errors.Is(err, sheet.ErrEmptyWorkbook) {
			return nil, ErrImportEmptyFile
		}
		s.logger.Info("unreadable import", zap.String("filename", req.Filename), zap.Error(err))
		return nil, ErrImportUnreadable
	}
	rowCount := 0
	for _, sh := range sheets {
		rowCount += len(sh.Rows)
	}
	if s.cfg.MaxRows > 0 && rowCount > s.cfg.MaxRows {
		return nil, fmt.Errorf("%w (%d > %d)", ErrImportTooManyRows, rowCount, s.cfg.MaxRows)
	}

	result := &dto.ImportResponse{Kind: kind, Issues: []dto.ImportIssue{}}
	if kind == ImportPlans {
		err = s.importPlans(ctx, p, sheets[0], result)
	} else {
		err = s.importPeople(ctx, p, kind, req.EstablishmentID, sheets, result)
	}
	if err != nil {
		return nil, err
	}

	s.recordJob(ctx, p, kind, req, result)

	s.logger.Info("import finished",
		zap.String("kind", kind),
		zap.String("filename", req.Filename),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("issues", len(result.Issues)))
	return result, nil
}

// importPlans applies the first sheet of a meal-plan workbook.
func (s *importService) importPlans(ctx context.Context, p Principal, sh *sheet.Sheet, result *dto.ImportResponse) error {
	layout, err := sheet.MapMealPlans(sh)
	if err != nil {
		return err
	}
	if layout.LowConfidence {
		s.logger.Warn("identifier column guessed from its values",
			zap.String("sheet", sh.Name),
			zap.Int("column", layout.IDColumn))
	}

	actor := optionalID(p.UserID)
	persons := make(map[string]*model.Person)
	for _, row := range layout.Rows() {
		if row.Matricule == "" {
			result.Issues = append(result.Issues, dto.ImportIssue{Line: row.Line, Reason: reasonMissingMatricule})
			continue
		}
		person, ok := persons[row.Matricule]
		if !ok {
			person, err = s.repo.Person.GetByMatricule(ctx, row.Matricule)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Error("load person failed", zap.String("matricule", row.Matricule), zap.Error(err))
				return err
			}
			persons[row.Matricule] = person
		}
		if person == nil {
			result.Issues = append(result.Issues, dto.ImportIssue{Line: row.Line, Matricule: row.Matricule, Reason: reasonUnknownMatricule})
			continue
		}

		for _, c := range row.Checked {
			created, err := s.repo.MealPlan.Upsert(ctx, person.PersonID, c.Date, c.Meal, actor)
			if err != nil {
				s.logger.Error("upsert meal plan failed",
					zap.String("person_id", person.PersonID),
					zap.Time("date", c.Date),
					zap.Error(err))
				result.Issues = append(result.Issues, dto.ImportIssue{
					Line:      row.Line,
					Matricule: row.Matricule,
					Reason:    fmt.Sprintf("%s %s %s", c.Date.Format(model.DateLayout), c.Meal, reasonStorage),
				})
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
	}
	return nil
}

// importPeople seeds persons and their login accounts from every sheet.
func (s *importService) importPeople(ctx context.Context, p Principal, kind, establishmentID string, sheets []*sheet.Sheet, result *dto.ImportResponse) error {
	if establishmentID == "" {
		return ErrImportEstablishmentNeeded
	}
	if _, err := s.repo.Establishment.GetByID(ctx, establishmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrImportEstablishmentGone
		}
		return err
	}

	personType, role := model.PersonStudent, model.RoleStudent
	if kind == ImportStaff {
		personType, role = model.PersonStaff, model.RoleStaff
	}

	mapped := 0
	for _, sh := range sheets {
		layout, err := sheet.MapPeople(sh)
		if err != nil {
			s.logger.Info("sheet skipped", zap.String("sheet", sh.Name), zap.Error(err))
			continue
		}
		mapped++

		for _, row := range layout.Rows() {
			if row.Matricule == "" {
				result.Issues = append(result.Issues, dto.ImportIssue{Line: row.Line, Reason: reasonMissingMatricule})
				continue
			}
			if row.Name == "" {
				result.Issues = append(result.Issues, dto.ImportIssue{Line: row.Line, Matricule: row.Matricule, Reason: reasonMissingName})
				continue
			}

			email := row.Email
			if email == "" && s.cfg.EmailDomain != "" {
				email = row.Matricule + "@" + strings.TrimPrefix(s.cfg.EmailDomain, "@")
			}
			person := &model.Person{
				Matricule:       row.Matricule,
				Name:            row.Name,
				Email:           email,
				EstablishmentID: establishmentID,
				Type:            personType,
			}
			if personType == model.PersonStudent && row.StudentYear != "" {
				year := row.StudentYear
				person.StudentYear = &year
			}
			person.CreatedBy = optionalID(p.UserID)
			person.UpdatedBy = optionalID(p.UserID)

			created, err := s.repo.Person.UpsertByMatricule(ctx, person)
			if err != nil {
				s.logger.Error("upsert person failed", zap.String("matricule", row.Matricule), zap.Error(err))
				result.Issues = append(result.Issues, dto.ImportIssue{Line: row.Line, Matricule: row.Matricule, Reason: reasonStorage})
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}

			if err := s.ensureAccount(ctx, person, role); err != nil {
				s.logger.Error("create account failed", zap.String("matricule", row.Matricule), zap.Error(err))
				result.Issues = append(result.Issues, dto.ImportIssue{Line: row.Line, Matricule: row.Matricule, Reason: "account " + reasonStorage})
			}
		}
	}
	if mapped == 0 {
		return sheet.ErrNoPeopleHeader
	}
	return nil
}

// ensureAccount creates the login account of an imported person when
// missing. The initial password is the configured prefix followed by the
// last six characters of the matricule.
func (s *importService) ensureAccount(ctx context.Context, person *model.Person, role string) error {
	_, err := s.repo.User.GetByUsername(ctx, person.Matricule)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword(s.cfg.DefaultPasswordPrefix, person.Matricule)), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	estID := person.EstablishmentID
	user := &model.User{
		Username:           person.Matricule,
		Email:              person.Email,
		PasswordHash:       string(hash),
		Role:               role,
		MustChangePassword: true,
		EstablishmentID:    &estID,
	}
	if err := s.repo.User.Create(ctx, user); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return nil
}

// DefaultPassword derives the first-login password of an imported person.
func DefaultPassword(prefix, matricule string) string {
	tail := matricule
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return prefix + tail
}

// recordJob archives the upload and stores the import summary. Failures
// are logged only; the import itself already succeeded.
func (s *importService) recordJob(ctx context.Context, p Principal, kind string, req *ImportRequest, result *dto.ImportResponse) {
	job := &model.ImportJob{
		Kind:     kind,
		Filename: filepath.Base(req.Filename),
		Created:  result.Created,
		Updated:  result.Updated,
	}
	if req.EstablishmentID != "" {
		job.EstablishmentID = &req.EstablishmentID
	}
	job.CreatedBy = optionalID(p.UserID)

	if s.archive != nil {
		key, err := s.archive.Store(ctx, req.Filename, req.Data, contentTypeFor(req.Filename))
		if err != nil {
			s.logger.Warn("archive upload failed", zap.String("filename", req.Filename), zap.Error(err))
		} else {
			job.ArchiveKey = key
		}
	}

	issues, err := json.Marshal(result.Issues)
	if err != nil {
		issues = []byte("[]")
	}
	job.Issues = datatypes.JSON(issues)

	if err := s.repo.ImportJob.Create(ctx, job); err != nil {
		s.logger.Warn("record import job failed", zap.Error(err))
		return
	}
	result.JobID = job.ImportJobID
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return "text/csv"
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// ────────────────────── ListJobs ──────────────────────

func (s *importService) ListJobs(ctx context.Context, page *dto.PaginationRequest) ([]dto.ImportJobResponse, int64, error) {
	jobs, total, err := s.repo.ImportJob.List(ctx, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("list import jobs failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ImportJobResponse, 0, len(jobs))
	for _, j := range jobs {
		issues := []dto.ImportIssue{}
		if len(j.Issues) > 0 {
			if err := json.Unmarshal(j.Issues, &issues); err != nil {
				s.logger.Warn("corrupt import issues", zap.String("job_id", j.ImportJobID), zap.Error(err))
			}
		}
		result = append(result, dto.ImportJobResponse{
			ID:              j.ImportJobID,
			Kind:            j.Kind,
			Filename:        j.Filename,
			ArchiveKey:      j.ArchiveKey,
			EstablishmentID: j.EstablishmentID,
			Created:         j.Created,
			Updated:         j.Updated,
			Issues:          issues,
			CreatedAt:       j.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return result, total, nil
}
