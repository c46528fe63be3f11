package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/integrity"
	"github.com/spec-kit/sales-crm/internal/privacy"
	"github.com/spec-kit/sales-crm/internal/realtime"
	"github.com/spec-kit/sales-crm/internal/repository"
	"github.com/spec-kit/sales-crm/internal/validation"
	apperrors "github.com/spec-kit/sales-crm/pkg/util/errorutil"
)

// EmployeeService manages the user collection.
type EmployeeService struct {
	collections *repository.Collections
	sync        *realtime.Manager
	logger      *zap.Logger
	now         Clock
}

// EmployeeDependencies bundles requirements for the employee service.
type EmployeeDependencies struct {
	Collections *repository.Collections
	Sync        *realtime.Manager
	Logger      *zap.Logger
	Clock       Clock
}

// EmployeeInput describes a new employee.
type EmployeeInput struct {
	EmployeeID  string
	Username    string
	Password    string
	Name        string
	Email       string
	Phone       string
	Role        domain.Role
	Manager     string
	Department  string
	Designation string
	Territory   string
	JoinDate    string
	Target      float64
}

// ProfilePatch lists the fields to change; nil fields are left untouched.
type ProfilePatch struct {
	Name        *string
	Email       *string
	Phone       *string
	Password    *string
	Department  *string
	Designation *string
	Territory   *string
	Role        *domain.Role
	Manager     *string
	IsActive    *bool
}

// NewEmployeeService constructs the service.
func NewEmployeeService(deps EmployeeDependencies) *EmployeeService {
	s := &EmployeeService{collections: deps.Collections, sync: deps.Sync, logger: deps.Logger, now: deps.Clock}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = utcNow
	}
	return s
}

// List returns the users visible to actor.
func (s *EmployeeService) List(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	users, err := s.collections.Users(ctx)
	if err != nil {
		return nil, err
	}
	return privacy.VisibleUsers(actor, users), nil
}

// Get returns a single user if actor may see them.
func (s *EmployeeService) Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	users, err := s.collections.Users(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireVisible(actor, id, users); err != nil {
		return nil, err
	}
	user, ok := domain.FindUser(users, id)
	if !ok {
		return nil, apperrors.NewNotFound("employee", map[string]any{"id": id})
	}
	out := user.Clone()
	return &out, nil
}

// Add creates an employee. Managers may only add employees into their own team.
func (s *EmployeeService) Add(ctx context.Context, actor *domain.User, in EmployeeInput) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isPrivileged(actor) {
		return nil, apperrors.NewForbidden("only admins and managers can add employees")
	}

	in.EmployeeID = strings.ToUpper(strings.TrimSpace(in.EmployeeID))
	in.Username = integrity.NormalizeUsername(validation.Sanitize(in.Username))
	in.Name = validation.Sanitize(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Role == "" {
		in.Role = domain.RoleEmployee
	}
	if actor.Role == domain.RoleManager {
		if in.Role != domain.RoleEmployee {
			return nil, apperrors.NewForbidden("managers can only add employees")
		}
		in.Manager = actor.ID
	}

	var violations []string
	if !validation.IsValidEmployeeID(in.EmployeeID) {
		violations = append(violations, "Employee ID must be 3-10 uppercase letters or digits")
	}
	if in.Username == "" {
		violations = append(violations, "Username is required")
	}
	if in.Name == "" {
		violations = append(violations, "Name is required")
	}
	if in.Email != "" && !validation.IsValidEmail(in.Email) {
		violations = append(violations, "Invalid email format")
	}
	if in.Phone != "" && !validation.IsValidPhone(in.Phone) {
		violations = append(violations, "Invalid phone number format")
	}
	if !in.Role.Valid() {
		violations = append(violations, "Invalid role: "+string(in.Role))
	}
	if in.Target < 0 {
		violations = append(violations, "Target cannot be negative")
	}
	violations = append(violations, validation.CheckPasswordStrength(in.Password).Errors...)
	if len(violations) > 0 {
		return nil, apperrors.NewValidationErrors("invalid employee", violations)
	}

	joinDate := in.JoinDate
	if joinDate == "" {
		joinDate = domain.FormatDate(s.now())
	} else if _, ok := domain.ParseDate(joinDate); !ok {
		return nil, apperrors.NewValidationError("invalid join date", map[string]any{"joinDate": joinDate})
	}

	user := domain.User{
		ID:          in.EmployeeID,
		EmployeeID:  in.EmployeeID,
		Username:    in.Username,
		Password:    in.Password,
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Role:        in.Role,
		Manager:     domain.StringPtr(in.Manager),
		Department:  validation.Sanitize(in.Department),
		Designation: validation.Sanitize(in.Designation),
		Territory:   validation.Sanitize(in.Territory),
		JoinDate:    joinDate,
		IsActive:    domain.BoolPtr(true),
		Target:      in.Target,
	}
	err := s.sync.MutateUsers(ctx, actor.ID, func(users []domain.User) ([]domain.User, error) {
		for _, u := range users {
			if strings.EqualFold(u.EmployeeID, in.EmployeeID) || u.ID == in.EmployeeID {
				return nil, apperrors.NewConflict("employee ID already exists", map[string]any{"employeeId": in.EmployeeID})
			}
			if strings.EqualFold(u.Username, in.Username) {
				return nil, apperrors.NewConflict("username already exists", map[string]any{"username": in.Username})
			}
		}
		if in.Manager != "" {
			mgr, ok := domain.FindUser(users, in.Manager)
			if !ok || mgr.Role != domain.RoleManager {
				return nil, apperrors.NewValidationError("manager must be an existing manager", map[string]any{"manager": in.Manager})
			}
		}
		return append(users, user), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("employee added", zap.String("id", user.ID), zap.String("actor_id", actor.ID))
	return &user, nil
}

// UpdateProfile merges patch into the user. Employees may edit their own
// contact details and password; role, manager and status changes need an admin.
func (s *EmployeeService) UpdateProfile(ctx context.Context, actor *domain.User, id string, patch ProfilePatch) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if (patch.Role != nil || patch.Manager != nil || patch.IsActive != nil) && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins can change role, manager or status")
	}

	var (
		u      domain.User
		fields []string
	)
	err := s.sync.MutateUsers(ctx, actor.ID, func(users []domain.User) ([]domain.User, error) {
		if err := requireVisible(actor, id, users); err != nil {
			return nil, err
		}
		idx := userIndex(users, id)
		if idx < 0 {
			return nil, apperrors.NewNotFound("employee", map[string]any{"id": id})
		}
		var violations []string
		u, fields, violations = applyProfilePatch(users[idx].Clone(), patch, users)
		if len(violations) > 0 {
			return nil, apperrors.NewValidationErrors("invalid profile update", violations)
		}
		if len(fields) == 0 {
			return nil, realtime.ErrNoChange
		}
		users[idx] = u
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return &u, nil
	}
	s.propagateSession(ctx, u)

	entry := domain.ProfileUpdateLogEntry{
		Timestamp: domain.FormatTimestamp(s.now()),
		UserID:    u.ID,
		ActorID:   actor.ID,
		Fields:    fields,
	}
	if err := s.collections.AppendProfileUpdateLog(ctx, entry); err != nil {
		s.logger.Warn("profile update log append failed", zap.Error(err))
	}
	return &u, nil
}

// applyProfilePatch merges patch into u and reports the touched fields and
// any violations.
func applyProfilePatch(u domain.User, patch ProfilePatch, users []domain.User) (domain.User, []string, []string) {
	var fields, violations []string
	setString := func(name string, dst *string, val *string) {
		if val == nil {
			return
		}
		fields = append(fields, name)
		*dst = validation.Sanitize(*val)
	}
	setString("name", &u.Name, patch.Name)
	setString("department", &u.Department, patch.Department)
	setString("designation", &u.Designation, patch.Designation)
	setString("territory", &u.Territory, patch.Territory)
	if patch.Email != nil {
		fields = append(fields, "email")
		u.Email = strings.TrimSpace(*patch.Email)
		if u.Email != "" && !validation.IsValidEmail(u.Email) {
			violations = append(violations, "Invalid email format")
		}
	}
	if patch.Phone != nil {
		fields = append(fields, "phone")
		u.Phone = strings.TrimSpace(*patch.Phone)
		if u.Phone != "" && !validation.IsValidPhone(u.Phone) {
			violations = append(violations, "Invalid phone number format")
		}
	}
	if patch.Password != nil {
		fields = append(fields, "password")
		violations = append(violations, validation.CheckPasswordStrength(*patch.Password).Errors...)
		u.Password = *patch.Password
	}
	if patch.Role != nil {
		fields = append(fields, "role")
		if !patch.Role.Valid() {
			violations = append(violations, "Invalid role: "+string(*patch.Role))
		}
		u.Role = *patch.Role
	}
	if patch.Manager != nil {
		fields = append(fields, "manager")
		mgrID := strings.TrimSpace(*patch.Manager)
		if mgrID != "" {
			mgr, ok := domain.FindUser(users, mgrID)
			switch {
			case !ok || mgr.Role != domain.RoleManager:
				violations = append(violations, "Manager must be an existing manager")
			case mgrID == u.ID:
				violations = append(violations, "An employee cannot report to themselves")
			}
		}
		u.Manager = domain.StringPtr(mgrID)
	}
	if patch.IsActive != nil {
		fields = append(fields, "isActive")
		u.IsActive = domain.BoolPtr(*patch.IsActive)
	}
	if u.Name == "" {
		violations = append(violations, "Name is required")
	}
	return u, fields, violations
}

// propagateSession refreshes the session-user slot when it holds u.
func (s *EmployeeService) propagateSession(ctx context.Context, u domain.User) {
	current, err := s.collections.CurrentUser(ctx)
	if err != nil || current == nil || current.ID != u.ID {
		return
	}
	session := u.Clone()
	session.Password = ""
	session.LastLogin = current.LastLogin
	if err := s.collections.SetCurrentUser(ctx, &session); err != nil {
		s.logger.Warn("session refresh failed", zap.Error(err))
	}
}

// Delete removes a user. Their sales and attendance are left in place and
// show up as orphans in the integrity report.
func (s *EmployeeService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only admins can delete employees")
	}
	if actor.ID == id {
		return apperrors.NewConflict("cannot delete your own account", nil)
	}
	err := s.sync.MutateUsers(ctx, actor.ID, func(users []domain.User) ([]domain.User, error) {
		idx := userIndex(users, id)
		if idx < 0 {
			return nil, apperrors.NewNotFound("employee", map[string]any{"id": id})
		}
		return append(users[:idx:idx], users[idx+1:]...), nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("employee deleted", zap.String("id", id), zap.String("actor_id", actor.ID))
	return nil
}

// Team returns a manager and their direct reports.
func (s *EmployeeService) Team(ctx context.Context, actor *domain.User, managerID string) (*privacy.Team, error) {
	users, err := s.collections.Users(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireVisible(actor, managerID, users); err != nil {
		return nil, err
	}
	team := privacy.TeamHierarchy(managerID, users)
	if team == nil {
		return nil, apperrors.NewNotFound("manager", map[string]any{"id": managerID})
	}
	return team, nil
}

// ReportingStructure groups the users visible to actor by manager id.
func (s *EmployeeService) ReportingStructure(ctx context.Context, actor *domain.User) (map[string][]domain.User, error) {
	visible, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	return privacy.ReportingStructure(visible), nil
}

// SetTarget records a monthly sales target and mirrors it on the user.
func (s *EmployeeService) SetTarget(ctx context.Context, actor *domain.User, userID, month string, amount float64) (*domain.Target, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isPrivileged(actor) || (actor.ID == userID && actor.Role != domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("targets are set by a manager or admin")
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, apperrors.NewValidationError("month must be formatted YYYY-MM", map[string]any{"month": month})
	}
	if amount < 0 {
		return nil, apperrors.NewValidationError("target cannot be negative", nil)
	}

	target := domain.Target{
		UserID:    userID,
		Month:     month,
		Amount:    amount,
		SetBy:     actor.ID,
		UpdatedAt: domain.FormatTimestamp(s.now()),
	}
	err := s.sync.MutateUsers(ctx, actor.ID, func(users []domain.User) ([]domain.User, error) {
		if err := requireVisible(actor, userID, users); err != nil {
			return nil, err
		}
		idx := userIndex(users, userID)
		if idx < 0 {
			return nil, apperrors.NewNotFound("employee", map[string]any{"id": userID})
		}
		if err := s.collections.UpsertTarget(ctx, target); err != nil {
			return nil, err
		}
		users[idx].Target = amount
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return &target, nil
}

// Targets returns the monthly targets of users visible to actor.
func (s *EmployeeService) Targets(ctx context.Context, actor *domain.User) ([]domain.Target, error) {
	visible, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	targets, err := s.collections.Targets(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(visible))
	for _, u := range visible {
		ids[u.ID] = struct{}{}
	}
	out := []domain.Target{}
	for _, t := range targets {
		if _, ok := ids[t.UserID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
