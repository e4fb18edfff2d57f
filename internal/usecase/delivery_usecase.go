package usecase

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/validator"

	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
)

type DeliveryUsecase struct {
	pincodes repo.DeliveryPincodeRepository
	log      *zap.Logger
}

func NewDeliveryUsecase(pincodes repo.DeliveryPincodeRepository, log *zap.Logger) *DeliveryUsecase {
	return &DeliveryUsecase{pincodes: pincodes, log: log.Named("delivery")}
}

type PincodeCheckOutput struct {
	Pincode           string `json:"pincode"`
	DeliveryAvailable bool   `json:"delivery_available"`
	City              string `json:"city,omitempty"`
	State             string `json:"state,omitempty"`
	Message           string `json:"message"`
}

// 配達可能か
func (u *DeliveryUsecase) Check(ctx context.Context, pincode string) (PincodeCheckOutput, error) {
	pincode = strings.TrimSpace(pincode)
	if !validator.IsPincode(pincode) {
		return PincodeCheckOutput{}, NewHTTPError(http.StatusBadRequest, "pincode must be 6 digits")
	}

	p, err := u.pincodes.FindByPincode(ctx, pincode)
	if errors.Is(err, repo.ErrNotFound) {
		return PincodeCheckOutput{
			Pincode: pincode,
			Message: "Delivery not available for this pincode",
		}, nil
	}
	if err != nil {
		return PincodeCheckOutput{}, errDB()
	}
	if !p.IsActive {
		return PincodeCheckOutput{
			Pincode: pincode,
			City:    p.City,
			State:   p.State,
			Message: "Delivery not available for this pincode",
		}, nil
	}

	return PincodeCheckOutput{
		Pincode:           pincode,
		DeliveryAvailable: true,
		City:              p.City,
		State:             p.State,
		Message:           "Delivery available",
	}, nil
}

type PincodeUploadOutput struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// .csv / .xlsx を取り込む。既存のピンコードはスキップ
func (u *DeliveryUsecase) Upload(ctx context.Context, filename string, r io.ReaderAt, size int64) (PincodeUploadOutput, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSVRows(io.NewSectionReader(r, 0, size))
	case ".xlsx":
		rows, err = readXLSXRows(r, size)
	default:
		return PincodeUploadOutput{}, NewHTTPError(http.StatusBadRequest, "file must be .csv or .xlsx")
	}
	if err != nil {
		return PincodeUploadOutput{}, NewHTTPError(http.StatusBadRequest, "could not read file")
	}

	out := PincodeUploadOutput{}
	for i, row := range rows {
		// 1行目はヘッダー
		if i == 0 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "pincode") {
			continue
		}
		p, err := parsePincodeRow(row)
		if err != nil {
			out.Skipped++
			out.Errors = append(out.Errors, fmt.Sprintf("row %d: %s", i+1, err.Error()))
			continue
		}

		created, err := u.pincodes.CreateIfNotExists(ctx, p)
		if err != nil {
			return PincodeUploadOutput{}, errDB()
		}
		if created {
			out.Added++
		} else {
			out.Skipped++
		}
	}

	u.log.Info("pincodes uploaded", zap.String("file", filename), zap.Int("added", out.Added), zap.Int("skipped", out.Skipped))
	return out, nil
}

// pincode,city,state[,is_active]
func parsePincodeRow(row []string) (model.DeliveryPincode, error) {
	col := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	p := model.DeliveryPincode{
		Pincode:  col(0),
		City:     col(1),
		State:    col(2),
		IsActive: true,
	}
	if !validator.IsPincode(p.Pincode) {
		return p, errors.New("invalid pincode")
	}
	if p.City == "" || p.State == "" {
		return p, errors.New("city and state required")
	}
	if v := col(3); v != "" {
		active, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return p, errors.New("invalid is_active")
		}
		p.IsActive = active
	}
	return p, nil
}

// Excelが付けるBOM
const utf8BOM = "\ufeff"

func readCSVRows(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

// 最初のシートだけ読む
func readXLSXRows(r io.ReaderAt, size int64) ([][]string, error) {
	f, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, err
	}
	if len(f.Sheets) == 0 {
		return nil, errors.New("no sheet")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, c.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
