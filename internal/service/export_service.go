package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/ics"
	"github.com/oumizumi/Kairo-sub002/internal/model"
	"github.com/oumizumi/Kairo-sub002/internal/planner"
	"github.com/oumizumi/Kairo-sub002/internal/repository"
)

// ── export errors ──

var (
	ErrExportNoEvents     = errors.New("the calendar has no events to export")
	ErrExportGenerateFail = errors.New("failed to build the spreadsheet")
	ErrImportEmpty        = errors.New("the uploaded calendar has no usable events")
)

const (
	ICSFilename  = "kairo_schedule.ics"
	XLSXFilename = "kairo_schedule.xlsx"
)

// ExportService calendar files: ICS export/import and a spreadsheet grid.
type ExportService interface {
	// ExportICS renders the user's calendar as iCalendar text.
	ExportICS(ctx context.Context, userID string) (string, error)
	// ExportXLSX renders the weekly grid and the event list as a spreadsheet.
	ExportXLSX(ctx context.Context, userID string) (*bytes.Buffer, error)
	// ImportICS adds the events of an uploaded calendar.
	ImportICS(ctx context.Context, userID string, r io.Reader) (*dto.BulkCreateResponse, error)
}

type exportService struct {
	repo     *repository.Repository
	calendar CalendarService
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService creates an ExportService
func NewExportService(repo *repository.Repository, calendar CalendarService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, calendar: calendar, logger: logger, now: time.Now}
}

func (s *exportService) ExportICS(ctx context.Context, userID string) (string, error) {
	events, err := s.repo.Calendar.List(ctx, userID)
	if err != nil {
		s.logger.Error("list calendar events failed", zap.Error(err))
		return "", err
	}
	out := make([]ics.Event, 0, len(events))
	for _, e := range events {
		out = append(out, toICSEvent(e))
	}
	return ics.Export(out, ics.ExportOptions{
		CalendarName:    "Kairo Schedule",
		Now:             s.now(),
		SkipReadingWeek: true,
	}), nil
}

func (s *exportService) ImportICS(ctx context.Context, userID string, r io.Reader) (*dto.BulkCreateResponse, error) {
	events, err := ics.Import(r, ics.ImportOptions{})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrImportEmpty
	}
	items := make([]dto.CalendarEventRequest, 0, len(events))
	for _, e := range events {
		items = append(items, fromICSEvent(e))
	}
	resp, err := s.calendar.BulkCreate(ctx, userID, items)
	if err != nil {
		return nil, err
	}
	s.logger.Info("calendar imported",
		zap.String("user_id", userID),
		zap.Int("created", resp.TotalCreated),
		zap.Int("rejected", resp.TotalErrors),
	)
	return resp, nil
}

// ═══════════════════════════════════════════════════════════
// ExportXLSX
// ═══════════════════════════════════════════════════════════
//
// Sheet "Week": one row per half hour from the earliest start to the latest
// end, one column per weekday that has classes (Monday to Friday always).
// A class fills every slot it covers; overlapping classes share the cell.
// Sheet "Events": every event, one per row, one-off events included.

const slotMinutes = 30

func (s *exportService) ExportXLSX(ctx context.Context, userID string) (*bytes.Buffer, error) {
	// 1. load
	events, err := s.repo.Calendar.List(ctx, userID)
	if err != nil {
		s.logger.Error("list calendar events failed", zap.Error(err))
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrExportNoEvents
	}

	// 2. grid index: "day:slot" → titles
	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	daySeen := map[string]bool{}
	for _, d := range days {
		daySeen[d] = true
	}
	first, last := 24*60, 0
	grid := map[string][]string{}
	for _, e := range events {
		if e.RecurrencePattern == model.RecurrenceNone || e.DayOfWeek == "" {
			continue
		}
		start, end, ok := clockSpan(e.StartTime, e.EndTime)
		if !ok {
			continue
		}
		if !daySeen[e.DayOfWeek] {
			daySeen[e.DayOfWeek] = true
			days = append(days, e.DayOfWeek)
		}
		if start < first {
			first = start
		}
		if end > last {
			last = end
		}
		label := planner.CourseKey(e.Title)
		if e.Location != "" {
			label += " @ " + e.Location
		}
		for m := start - start%slotMinutes; m < end; m += slotMinutes {
			key := fmt.Sprintf("%s:%d", e.DayOfWeek, m)
			grid[key] = appendUnique(grid[key], label)
		}
	}
	if last <= first {
		first, last = 8*60, 18*60
	}
	first -= first % slotMinutes

	// 3. workbook
	f := excelize.NewFile()
	defer f.Close()

	week := "Week"
	idx, _ := f.NewSheet(week)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	classStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})

	f.SetColWidth(week, "A", "A", 10)
	for i := range days {
		col := colName(i + 1)
		f.SetColWidth(week, col, col, 24)
	}

	f.SetCellValue(week, "A1", "Time")
	for i, d := range days {
		f.SetCellValue(week, cell(colName(i+1), 1), d)
	}
	f.SetCellStyle(week, "A1", cell(colName(len(days)), 1), headerStyle)

	row := 2
	for m := first; m < last; m += slotMinutes {
		f.SetCellValue(week, cell("A", row), fmt.Sprintf("%02d:%02d", m/60, m%60))
		for i, d := range days {
			if titles, ok := grid[fmt.Sprintf("%s:%d", d, m)]; ok {
				c := cell(colName(i+1), row)
				f.SetCellValue(week, c, strings.Join(titles, "\n"))
				f.SetCellStyle(week, c, c, classStyle)
			}
		}
		row++
	}

	// 4. event list
	list := "Events"
	f.NewSheet(list)
	headers := []string{"Title", "Day", "Start", "End", "Start date", "End date", "Recurrence", "Location", "Professor"}
	for i, h := range headers {
		f.SetCellValue(list, cell(colName(i), 1), h)
	}
	f.SetCellStyle(list, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(list, "A", "A", 40)
	f.SetColWidth(list, "B", colName(len(headers)-1), 14)

	sorted := append([]model.UserCalendar(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartDate != sorted[j].StartDate {
			return sorted[i].StartDate < sorted[j].StartDate
		}
		return sorted[i].StartTime < sorted[j].StartTime
	})
	for i, e := range sorted {
		r := i + 2
		values := []string{e.Title, e.DayOfWeek, e.StartTime, e.EndTime, e.StartDate, e.EndDate, e.RecurrencePattern, e.Location, e.Professor}
		for j, v := range values {
			f.SetCellValue(list, cell(colName(j), r), v)
		}
	}

	// 5. write
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("write spreadsheet failed", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return buf, nil
}

// ── helpers ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func clockSpan(start, end string) (int, int, bool) {
	s, err := time.Parse(clockLayout, start)
	if err != nil {
		return 0, 0, false
	}
	e, err := time.Parse(clockLayout, end)
	if err != nil {
		return 0, 0, false
	}
	sm, em := s.Hour()*60+s.Minute(), e.Hour()*60+e.Minute()
	return sm, em, em > sm
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func toICSEvent(e model.UserCalendar) ics.Event {
	return ics.Event{
		UID:         e.EventID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Professor:   e.Professor,
		DayOfWeek:   e.DayOfWeek,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		Recurrence:  e.RecurrencePattern,
		Theme:       e.Theme,
	}
}

func fromICSEvent(e ics.Event) dto.CalendarEventRequest {
	theme := e.Theme
	if !planner.IsTheme(theme) {
		theme = ""
	}
	title := e.Title
	if r := []rune(title); len(r) > 200 {
		title = string(r[:200])
	}
	return dto.CalendarEventRequest{
		Title:             title,
		StartTime:         e.StartTime,
		EndTime:           e.EndTime,
		DayOfWeek:         e.DayOfWeek,
		StartDate:         e.StartDate,
		EndDate:           e.EndDate,
		Description:       e.Description,
		Professor:         e.Professor,
		Location:          e.Location,
		RecurrencePattern: e.Recurrence,
		ReferenceDate:     e.StartDate,
		Theme:             theme,
	}
}
