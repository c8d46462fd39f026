package service

import (
	"context"
	"strings"

	"github.com/sentrilane/visitgate/internal/config"
	"github.com/sentrilane/visitgate/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Repo   domain.Repository
	Policy *config.RolePolicyHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	policy *config.RolePolicyHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("identity.service"),
		repo:   p.Repo,
		policy: p.Policy,
	}
}

func (s *Service) GetEmployee(ctx context.Context, empID int64) (domain.Employee, error) {
	if empID <= 0 {
		return domain.Employee{}, domain.ErrInvalidID
	}

	employee, err := s.repo.FindEmployeeByID(ctx, s.db, empID)
	if err != nil {
		return domain.Employee{}, err
	}
	if employee == nil {
		return domain.Employee{}, domain.ErrNotFound
	}
	if !employee.IsActive {
		return domain.Employee{}, domain.ErrInactive
	}

	return *employee, nil
}

func (s *Service) ResolveDepartment(ctx context.Context, refs domain.HostRefs) (domain.Department, error) {
	if refs.DepartmentID > 0 {
		if department, err := s.activeDepartment(ctx, refs.DepartmentID); err != nil || department != nil {
			return deref(department), err
		}
	}

	if refs.EmpID > 0 {
		employee, err := s.repo.FindEmployeeByID(ctx, s.db, refs.EmpID)
		if err != nil {
			return domain.Department{}, err
		}
		if employee != nil && employee.IsActive && employee.DepartmentID > 0 {
			if department, err := s.activeDepartment(ctx, employee.DepartmentID); err != nil || department != nil {
				return deref(department), err
			}
		}
	}

	if refs.UserID > 0 {
		user, err := s.repo.FindUserByID(ctx, s.db, refs.UserID)
		if err != nil {
			return domain.Department{}, err
		}
		if user != nil && user.IsActive && user.DepartmentID > 0 {
			if department, err := s.activeDepartment(ctx, user.DepartmentID); err != nil || department != nil {
				return deref(department), err
			}
		}
	}

	return domain.Department{}, domain.ErrNoDepartment
}

func (s *Service) activeDepartment(ctx context.Context, departmentID int64) (*domain.Department, error) {
	department, err := s.repo.FindDepartmentByID(ctx, s.db, departmentID)
	if err != nil {
		return nil, err
	}
	if department == nil || !department.IsActive {
		return nil, nil
	}
	return department, nil
}

func deref(department *domain.Department) domain.Department {
	if department == nil {
		return domain.Department{}
	}
	return *department
}

// ResolveNotifyTarget walks the identifier spaces in a fixed order. An id
// that is an active employee wins outright. Otherwise the id is tried as a
// user account, whose user_code links back into the employee directory.
// Anything unresolvable falls back to the ADMIN role audience.
func (s *Service) ResolveNotifyTarget(ctx context.Context, candidateID int64) (domain.NotifyTarget, error) {
	fallback := domain.NotifyTarget{Role: "ADMIN"}
	if candidateID <= 0 {
		return fallback, nil
	}

	employee, err := s.repo.FindEmployeeByID(ctx, s.db, candidateID)
	if err != nil {
		return domain.NotifyTarget{}, err
	}
	if employee != nil && employee.IsActive {
		empID := employee.EmpID
		return domain.NotifyTarget{EmpID: &empID}, nil
	}

	user, err := s.repo.FindUserByID(ctx, s.db, candidateID)
	if err != nil {
		return domain.NotifyTarget{}, err
	}
	if user == nil || !user.IsActive || strings.TrimSpace(user.UserCode) == "" {
		s.log.Debug("notify target unresolved, falling back to role",
			zap.Int64("candidate_id", candidateID),
		)
		return fallback, nil
	}

	linked, err := s.repo.FindEmployeeByCode(ctx, s.db, user.UserCode)
	if err != nil {
		return domain.NotifyTarget{}, err
	}
	if linked == nil || !linked.IsActive {
		s.log.Debug("user account linked to no active employee",
			zap.Int64("candidate_id", candidateID),
			zap.String("user_code", user.UserCode),
		)
		return fallback, nil
	}

	empID := linked.EmpID
	return domain.NotifyTarget{EmpID: &empID}, nil
}

// ResolveDepartmentAdmin picks the lowest active admin account in the
// department. Departments without one fall back to the ADMIN role audience.
func (s *Service) ResolveDepartmentAdmin(ctx context.Context, departmentID int64) (domain.DepartmentAdmin, error) {
	fallback := domain.DepartmentAdmin{Role: "ADMIN"}
	if departmentID <= 0 {
		return fallback, nil
	}

	adminRoles := s.policy.Get().AdminRoles
	if len(adminRoles) == 0 {
		adminRoles = []string{"ADMIN"}
	}

	user, err := s.repo.FindDepartmentAdmin(ctx, s.db, departmentID, adminRoles)
	if err != nil {
		return domain.DepartmentAdmin{}, err
	}
	if user == nil {
		return fallback, nil
	}

	admin := domain.DepartmentAdmin{Role: user.Role, Email: user.Email}
	if strings.TrimSpace(user.UserCode) != "" {
		linked, err := s.repo.FindEmployeeByCode(ctx, s.db, user.UserCode)
		if err != nil {
			return domain.DepartmentAdmin{}, err
		}
		if linked != nil && linked.IsActive {
			empID := linked.EmpID
			admin.EmpID = &empID
			if admin.Email == "" {
				admin.Email = linked.Email
			}
		}
	}

	return admin, nil
}

func (s *Service) MapDesignationToRole(designation string) string {
	policy := s.policy.Get()

	normalized := strings.ToLower(strings.TrimSpace(designation))
	if normalized == "" {
		return policy.DefaultRole
	}

	for _, kw := range policy.Keywords {
		for _, token := range kw.Match {
			if strings.Contains(normalized, strings.ToLower(token)) {
				return kw.Role
			}
		}
	}

	return policy.DefaultRole
}
