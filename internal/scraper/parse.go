package scraper

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoCalendar is returned when the page carries no recognizable
// availability calendar, usually meaning a layout change upstream.
var ErrNoCalendar = errors.New("no availability calendar found on page")

// Parse extracts the availability calendar from a parsed listing page.
// It first looks for the platform's calendar markup; if the page layout
// changed, a looser fallback pass tries any table carrying availability
// classes, assuming months run consecutively from the current month.
func (s *Scraper) Parse(doc *goquery.Document) (*Result, error) {
	result := &Result{FetchedAt: time.Now().In(s.loc)}

	doc.Find("table.rc-calendar").Each(func(_ int, table *goquery.Selection) {
		// The legend block repeats the cell markup to explain the colors.
		if table.ParentsFiltered(".rcav-key").Length() > 0 {
			return
		}

		caption := strings.TrimSpace(table.Find("caption").First().Text())
		month, err := time.ParseInLocation("January 2006", caption, s.loc)
		if err != nil {
			s.logger.Warn().Str("caption", caption).Msg("skipping calendar with unparseable caption")
			return
		}

		result.Months = append(result.Months, caption)
		result.Days = append(result.Days, s.parseMonth(table, month)...)
	})

	if len(result.Days) > 0 {
		return result, nil
	}

	s.logger.Warn().Msg("strict calendar markup not found, trying fallback parse")
	if err := s.parseFallback(doc, result); err != nil {
		return nil, err
	}
	return result, nil
}

// parseMonth classifies the day cells of one month table.
func (s *Scraper) parseMonth(table *goquery.Selection, month time.Time) []Day {
	var days []Day
	table.Find("td").Each(func(_ int, cell *goquery.Selection) {
		num, d, ok := classifyCell(cell)
		if !ok {
			return
		}
		d.Date = time.Date(month.Year(), month.Month(), num, 0, 0, 0, 0, s.loc)
		days = append(days, d)
	})
	return days
}

// classifyCell reads a td's availability classes. A day is blocked only
// when marked fully unavailable; check-in and check-out markers can
// appear alongside either status and are kept as flags. Cells without a
// day number or any availability class belong to calendar padding.
func classifyCell(cell *goquery.Selection) (int, Day, bool) {
	num, err := strconv.Atoi(strings.TrimSpace(cell.Text()))
	if err != nil || num < 1 || num > 31 {
		return 0, Day{}, false
	}

	classes, _ := cell.Attr("class")
	d := Day{
		Status:   DayAvailable,
		CheckIn:  hasClass(classes, "av-IN"),
		CheckOut: hasClass(classes, "av-OUT"),
	}
	if hasClass(classes, "av-X") {
		d.Status = DayBlocked
	} else if !hasClass(classes, "av-O") && !d.CheckIn && !d.CheckOut {
		return 0, Day{}, false
	}
	return num, d, true
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

// parseFallback handles pages where the calendar lost its identifying
// table class. Any table whose cells carry availability classes is
// treated as a month; months are assumed to run consecutively starting
// from the current month, which matches how the platform renders its
// booking window.
func (s *Scraper) parseFallback(doc *goquery.Document, result *Result) error {
	now := time.Now().In(s.loc)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)

	found := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if table.ParentsFiltered(".rcav-key").Length() > 0 {
			return
		}
		if table.Find("td[class*='av-']").Length() == 0 {
			return
		}

		m := month.AddDate(0, found, 0)
		if caption := strings.TrimSpace(table.Find("caption").First().Text()); caption != "" {
			if parsed, err := time.ParseInLocation("January 2006", caption, s.loc); err == nil {
				m = parsed
			}
		}

		result.Months = append(result.Months, m.Format("January 2006"))
		result.Days = append(result.Days, s.parseMonth(table, m)...)
		found++
	})

	if found == 0 {
		return ErrNoCalendar
	}
	return nil
}
