// Package report renders organizer downloads: leaderboard spreadsheets and join QR codes.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"torcida-quiz-service/internal/domain"
)

const rankingSheet = "Ranking"

var rankingHeader = []string{"Posição", "Participante", "Pontuação", "Acertos", "Respondidas", "Total de perguntas", "Tempo total (s)", "Concluiu"}

// LeaderboardWorkbook renders a ranked leaderboard as an .xlsx document.
func LeaderboardWorkbook(quiz domain.Quiz, lb domain.Leaderboard) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rankingSheet); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(rankingSheet, "A1", quiz.Title); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(rankingSheet, "A2", "Código: "+quiz.Code); err != nil {
		return nil, err
	}

	const headerRow = 4
	for i, title := range rankingHeader {
		if err := setCell(f, i+1, headerRow, title); err != nil {
			return nil, err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(rankingHeader), headerRow)
	if err := f.SetCellStyle(rankingSheet, "A4", last, bold); err != nil {
		return nil, err
	}

	for i, e := range lb.Entries {
		row := headerRow + 1 + i
		completed := "Não"
		if e.Completed {
			completed = "Sim"
		}
		values := []interface{}{
			e.Position, e.Name, e.TotalScore, e.CorrectAnswers, e.TotalAnswered, e.TotalQuestions,
			float64(e.TotalTimeMs) / 1000, completed,
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(rankingSheet, cell, value)
}
