package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/clock"
	dashboarddomain "github.com/sentrilane/visitgate/internal/dashboard/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func New(p Params) dashboarddomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		clock: p.Clock,
	}
}

type departmentSummaryRow struct {
	DepartmentID   int64  `gorm:"column:department_id"`
	DepartmentName string `gorm:"column:department_name"`
	Pending        int64  `gorm:"column:pending"`
	Expected       int64  `gorm:"column:expected"`
	CheckedIn      int64  `gorm:"column:checked_in"`
}

func (s *Service) DepartmentsToday(ctx context.Context) (dashboarddomain.DepartmentsTodayResponse, error) {
	today := s.today()

	var rows []departmentSummaryRow
	query := `
		SELECT d.department_id,
		       d.department_name,
		       COALESCE(p.pending, 0) AS pending,
		       COALESCE(g.expected, 0) AS expected,
		       COALESCE(g.checked_in, 0) AS checked_in
		FROM departments d
		LEFT JOIN (
			SELECT department_id, COUNT(*) AS pending
			FROM prebookings
			WHERE visit_date = ? AND (status = '' OR status = 'PENDING')
			GROUP BY department_id
		) p ON p.department_id = d.department_id
		LEFT JOIN (
			SELECT gp.department_id,
			       COUNT(*) AS expected,
			       COUNT(ci.gatepass_id) AS checked_in
			FROM gatepasses gp
			LEFT JOIN (
				SELECT gatepass_id, MIN(created_at) AS first_checkin
				FROM inout_records
				WHERE action = 'CHECK_IN'
				GROUP BY gatepass_id
			) ci ON ci.gatepass_id = gp.gatepass_id
			WHERE gp.valid_date = ?
			GROUP BY gp.department_id
		) g ON g.department_id = d.department_id
		WHERE d.is_active = ?
		ORDER BY d.department_name ASC`

	if err := s.db.WithContext(ctx).Raw(
		query,
		today,
		today,
		true,
	).Scan(&rows).Error; err != nil {
		return dashboarddomain.DepartmentsTodayResponse{}, err
	}

	departments := make([]dashboarddomain.DepartmentSummary, 0, len(rows))
	for _, row := range rows {
		departments = append(departments, dashboarddomain.DepartmentSummary{
			DepartmentID:   row.DepartmentID,
			DepartmentName: row.DepartmentName,
			Pending:        row.Pending,
			Expected:       row.Expected,
			CheckedIn:      row.CheckedIn,
		})
	}

	return dashboarddomain.DepartmentsTodayResponse{
		Date:        today,
		Departments: departments,
	}, nil
}

type visitorTodayRow struct {
	GatepassID   snowflake.ID `gorm:"column:gatepass_id"`
	PassCode     string       `gorm:"column:pass_code"`
	VisitorName  string       `gorm:"column:visitor_name"`
	Company      string       `gorm:"column:company"`
	HostEmpID    int64        `gorm:"column:host_emp_id"`
	FirstName    string       `gorm:"column:first_name"`
	LastName     string       `gorm:"column:last_name"`
	FirstCheckin *time.Time   `gorm:"column:first_checkin"`
	LastCheckout *time.Time   `gorm:"column:last_checkout"`
}

func (s *Service) DepartmentToday(ctx context.Context, req dashboarddomain.DepartmentTodayRequest) (dashboarddomain.DepartmentTodayResponse, error) {
	if req.DepartmentID <= 0 {
		return dashboarddomain.DepartmentTodayResponse{}, dashboarddomain.ErrInvalidID
	}

	var departmentName string
	err := s.db.WithContext(ctx).Raw(
		`SELECT department_name FROM departments WHERE department_id = ?`,
		req.DepartmentID,
	).Scan(&departmentName).Error
	if err != nil {
		return dashboarddomain.DepartmentTodayResponse{}, err
	}
	if departmentName == "" {
		return dashboarddomain.DepartmentTodayResponse{}, dashboarddomain.ErrNotFound
	}

	today := s.today()

	var rows []visitorTodayRow
	query := `
		SELECT gp.gatepass_id,
		       gp.pass_code,
		       gp.visitor_name,
		       COALESCE(pb.company, '') AS company,
		       gp.host_emp_id,
		       COALESCE(e.first_name, '') AS first_name,
		       COALESCE(e.last_name, '') AS last_name,
		       io.first_checkin,
		       io.last_checkout
		FROM gatepasses gp
		LEFT JOIN prebookings pb ON pb.prebooking_id = gp.prebooking_id
		LEFT JOIN employees e ON e.emp_id = gp.host_emp_id
		LEFT JOIN (
			SELECT gatepass_id,
			       MIN(CASE WHEN action = 'CHECK_IN' THEN created_at END) AS first_checkin,
			       MAX(CASE WHEN action = 'CHECK_OUT' THEN created_at END) AS last_checkout
			FROM inout_records
			GROUP BY gatepass_id
		) io ON io.gatepass_id = gp.gatepass_id
		WHERE gp.department_id = ? AND gp.valid_date = ?
		ORDER BY gp.pass_number ASC`

	if err := s.db.WithContext(ctx).Raw(
		query,
		req.DepartmentID,
		today,
	).Scan(&rows).Error; err != nil {
		return dashboarddomain.DepartmentTodayResponse{}, err
	}

	visitors := make([]dashboarddomain.VisitorToday, 0, len(rows))
	for _, row := range rows {
		status := "expected"
		switch {
		case row.LastCheckout != nil:
			status = "checked_out"
		case row.FirstCheckin != nil:
			status = "checked_in"
		}

		hostName := row.FirstName
		if row.LastName != "" {
			if hostName != "" {
				hostName += " "
			}
			hostName += row.LastName
		}

		visitors = append(visitors, dashboarddomain.VisitorToday{
			GatepassID:    row.GatepassID.String(),
			PassCode:      row.PassCode,
			VisitorName:   row.VisitorName,
			Company:       row.Company,
			HostEmpID:     row.HostEmpID,
			HostName:      hostName,
			FirstCheckin:  row.FirstCheckin,
			LastCheckout:  row.LastCheckout,
			VisitorStatus: status,
		})
	}

	return dashboarddomain.DepartmentTodayResponse{
		Date:           today,
		DepartmentID:   req.DepartmentID,
		DepartmentName: departmentName,
		Visitors:       visitors,
	}, nil
}

func (s *Service) today() string {
	return s.clock.Now().Format("2006-01-02")
}
