package services

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"food_crm/internal/models"
	"food_crm/internal/repository"
)

// maxTablesPerRequest caps how many tables one provisioning call may touch.
const maxTablesPerRequest = 50

var (
	tableRangeRe  = regexp.MustCompile(`^T(\d+)\s*-\s*T(\d+)$`)
	tableSingleRe = regexp.MustCompile(`^T(\d+)$`)
	tableCountRe  = regexp.MustCompile(`^\d+$`)
)

// ProvisionRequest selects the tables to create or rotate. Spec holds a range
// "T<a>-T<b>", a single "T<n>" or a bare count; Count is used when Spec is
// empty. With neither set one table is added.
type ProvisionRequest struct {
	Spec  string
	Count *int
}

// ProvisionedTable is one result row of a provisioning call.
type ProvisionedTable struct {
	TableNo string `json:"table_no"`
	Hash    string `json:"hash"`
	URL     string `json:"url"`
}

type TableService struct {
	tables  repository.TableRepository
	baseURL string
	newHash func() (string, error)
}

func NewTableService(tables repository.TableRepository, baseURL string) *TableService {
	return &TableService{
		tables:  tables,
		baseURL: strings.TrimRight(baseURL, "/"),
		newHash: GenerateTableHash,
	}
}

// ScanURL builds the customer-facing link encoded in the table's QR code.
func (s *TableService) ScanURL(tableNo, hash string) string {
	q := url.Values{}
	q.Set("hash", hash)
	q.Set("table", tableNo)
	return s.baseURL + "/scan?" + q.Encode()
}

func parsePositive(s, field string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, invalid(field, "table numbers start at 1")
	}
	return n, nil
}

// resolveTableNumbers turns a request into the table labels it names.
func (s *TableService) resolveTableNumbers(ctx context.Context, req ProvisionRequest) ([]string, error) {
	spec := strings.ToUpper(strings.TrimSpace(req.Spec))

	if m := tableRangeRe.FindStringSubmatch(spec); m != nil {
		from, err := parsePositive(m[1], "table_no")
		if err != nil {
			return nil, err
		}
		to, err := parsePositive(m[2], "table_no")
		if err != nil {
			return nil, err
		}
		if from > to {
			return nil, invalid("table_no", "range start must not exceed its end")
		}
		if to-from+1 > maxTablesPerRequest {
			return nil, invalid("table_no", "at most %d tables per request", maxTablesPerRequest)
		}
		labels := make([]string, 0, to-from+1)
		for n := from; n <= to; n++ {
			labels = append(labels, models.TableNumber(n))
		}
		return labels, nil
	}

	if m := tableSingleRe.FindStringSubmatch(spec); m != nil {
		n, err := parsePositive(m[1], "table_no")
		if err != nil {
			return nil, err
		}
		return []string{models.TableNumber(n)}, nil
	}

	count := 1
	if req.Count != nil {
		count = *req.Count
	}
	switch {
	case spec == "":
	case tableCountRe.MatchString(spec):
		n, err := strconv.Atoi(spec)
		if err != nil {
			return nil, invalid("count", "must be a number")
		}
		count = n
	default:
		return nil, invalid("table_no", "expected T<n>, T<a>-T<b> or a count")
	}
	if count < 1 || count > maxTablesPerRequest {
		return nil, invalid("count", "must be between 1 and %d", maxTablesPerRequest)
	}

	highest, err := s.tables.MaxNumber(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to read current table numbers")
		return nil, ErrInternal
	}
	labels := make([]string, 0, count)
	for n := highest + 1; n <= highest+count; n++ {
		labels = append(labels, models.TableNumber(n))
	}
	return labels, nil
}

// ProvisionTables creates the requested tables, rotating the hash of any
// that already exist.
func (s *TableService) ProvisionTables(ctx context.Context, user *models.User, req ProvisionRequest) ([]ProvisionedTable, error) {
	if user.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	labels, err := s.resolveTableNumbers(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make([]ProvisionedTable, 0, len(labels))
	for _, label := range labels {
		hash, err := s.newHash()
		if err != nil {
			logrus.WithError(err).Error("failed to generate table hash")
			return nil, ErrInternal
		}
		table, err := s.tables.Upsert(ctx, label, hash)
		if err != nil {
			logrus.WithError(err).WithField("table_no", label).Error("failed to provision table")
			return nil, ErrInternal
		}
		out = append(out, ProvisionedTable{
			TableNo: table.TableNo,
			Hash:    table.Hash,
			URL:     s.ScanURL(table.TableNo, table.Hash),
		})
	}

	logrus.WithFields(logrus.Fields{"count": len(out), "user_id": user.ID}).Info("tables provisioned")
	return out, nil
}

// VerifyTable reports whether an active table carries exactly this hash.
func (s *TableService) VerifyTable(ctx context.Context, tableNo, hash string) (bool, error) {
	tableNo = strings.TrimSpace(tableNo)
	hash = strings.TrimSpace(hash)
	if tableNo == "" || hash == "" {
		return false, invalid("", "missing table or hash")
	}

	table, err := s.tables.FindByTableNo(ctx, tableNo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		logrus.WithError(err).WithField("table_no", tableNo).Error("failed to load table")
		return false, ErrInternal
	}
	return table.IsActive && table.Hash == hash, nil
}

func (s *TableService) DeleteTable(ctx context.Context, user *models.User, tableNo string) error {
	if user.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if err := s.tables.Delete(ctx, strings.TrimSpace(tableNo)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		logrus.WithError(err).WithField("table_no", tableNo).Error("failed to delete table")
		return ErrInternal
	}
	logrus.WithField("table_no", tableNo).Info("table deleted")
	return nil
}

func (s *TableService) ListActiveTables(ctx context.Context, user *models.User) ([]models.Table, error) {
	if user.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	tables, err := s.tables.ListActive(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to list tables")
		return nil, ErrInternal
	}
	return tables, nil
}
