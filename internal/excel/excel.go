package excel

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/legacies/internal/history"
	"github.com/derekprior/legacies/internal/store"
)

const (
	LeaderboardSheet = "Leaderboard"
	HistorySheet     = "Match History"
	FactionSheet     = "Factions"
)

// Generate creates an Excel workbook with the leaderboard, the match history
// and per-faction results.
func Generate(standings []store.Standing, matches []history.MatchRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	// Set default font for the workbook
	f.SetDefaultFont("Arial")

	if err := writeLeaderboardSheet(f, standings); err != nil {
		return nil, fmt.Errorf("writing leaderboard sheet: %w", err)
	}

	if err := writeHistorySheet(f, matches); err != nil {
		return nil, fmt.Errorf("writing history sheet: %w", err)
	}

	if err := writeFactionSheet(f, standings); err != nil {
		return nil, fmt.Errorf("writing faction sheet: %w", err)
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		if err := f.SetCellValue(sheet, cellRef(i+1, 1), h); err != nil {
			return err
		}
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 14, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if headerStyle != 0 {
		f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), headerStyle)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	for i, v := range values {
		if err := f.SetCellValue(sheet, cellRef(i+1, row), v); err != nil {
			return err
		}
	}
	return nil
}

func percent(v float64) float64 {
	return math.Round(v*10) / 10
}

func writeLeaderboardSheet(f *excelize.File, standings []store.Standing) error {
	sheet := LeaderboardSheet
	f.NewSheet(sheet)

	headers := []string{"Rank", "Player", "Rating", "Games", "Wins", "Losses", "Win %"}
	if err := writeHeaders(f, sheet, headers); err != nil {
		return err
	}

	for i, s := range standings {
		err := writeRow(f, sheet, i+2,
			i+1, s.Name, s.Rating, s.GamesPlayed, s.Wins, s.Losses, percent(s.WinRate()))
		if err != nil {
			return err
		}
	}

	widths := map[string]float64{"A": 8, "B": 24, "C": 10, "D": 10, "E": 10, "F": 10, "G": 10}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}
	return nil
}

func writeHistorySheet(f *excelize.File, matches []history.MatchRecord) error {
	sheet := HistorySheet
	f.NewSheet(sheet)

	headers := []string{"Game", "Date", "Score", "Team", "Player", "Faction", "Change"}
	if err := writeHeaders(f, sheet, headers); err != nil {
		return err
	}

	row := 2
	for _, m := range matches {
		score := fmt.Sprintf("%d-%d", m.ScoreA, m.ScoreB)
		sides := []struct {
			name    string
			players []history.PlayerRecord
		}{{"A", m.TeamA}, {"B", m.TeamB}}
		for _, side := range sides {
			for _, p := range side.players {
				err := writeRow(f, sheet, row,
					m.GameID, m.Timestamp.Format("01/02/2006 15:04"), score, side.name, p.Name, p.Faction(), p.RatingDelta)
				if err != nil {
					return err
				}
				row++
			}
		}
	}

	widths := map[string]float64{"A": 8, "B": 20, "C": 8, "D": 8, "E": 24, "F": 18, "G": 10}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}

	if row == 2 {
		return nil
	}

	// Conditional formatting: rating changes in green or red
	cellRange := fmt.Sprintf("G2:G%d", row-1)
	greenFill, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#C6EFCE"}},
	})
	redFill, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
	})
	return f.SetConditionalFormat(sheet, cellRange, []excelize.ConditionalFormatOptions{
		{Type: "cell", Criteria: ">", Value: "0", Format: &greenFill},
		{Type: "cell", Criteria: "<", Value: "0", Format: &redFill},
	})
}

// factionTotal aggregates one faction's results across all players.
type factionTotal struct {
	name    string
	players int
	wins    int
	losses  int
}

func (t factionTotal) winRate() float64 {
	if t.wins+t.losses == 0 {
		return 0
	}
	return float64(t.wins) / float64(t.wins+t.losses) * 100
}

func factionTotals(standings []store.Standing) []factionTotal {
	byName := make(map[string]*factionTotal)
	for _, s := range standings {
		for name, rec := range s.FactionHistory {
			t, ok := byName[name]
			if !ok {
				t = &factionTotal{name: name}
				byName[name] = t
			}
			t.players++
			t.wins += rec.Wins
			t.losses += rec.Losses
		}
	}

	totals := lo.Map(lo.Values(byName), func(t *factionTotal, _ int) factionTotal { return *t })
	sort.Slice(totals, func(i, j int) bool {
		gi, gj := totals[i].wins+totals[i].losses, totals[j].wins+totals[j].losses
		if gi != gj {
			return gi > gj
		}
		return totals[i].name < totals[j].name
	})
	return totals
}

func writeFactionSheet(f *excelize.File, standings []store.Standing) error {
	sheet := FactionSheet
	f.NewSheet(sheet)

	headers := []string{"Faction", "Players", "Games", "Wins", "Losses", "Win %"}
	if err := writeHeaders(f, sheet, headers); err != nil {
		return err
	}

	for i, t := range factionTotals(standings) {
		err := writeRow(f, sheet, i+2,
			t.name, t.players, t.wins+t.losses, t.wins, t.losses, percent(t.winRate()))
		if err != nil {
			return err
		}
	}

	widths := map[string]float64{"A": 20, "B": 10, "C": 10, "D": 10, "E": 10, "F": 10}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}
	return nil
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
