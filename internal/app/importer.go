package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"course-exam-service/internal/domain"
)

// ParsedQuestion is one Q:/A:/B:/C:/D:/ANSWER: block. A field is empty when its
// line was missing or carried the wrong prefix.
type ParsedQuestion struct {
	Text    string
	OptionA string
	OptionB string
	OptionC string
	OptionD string
	Answer  string
}

// Complete reports whether every field is non-blank.
func (p ParsedQuestion) Complete() bool {
	for _, field := range []string{p.Text, p.OptionA, p.OptionB, p.OptionC, p.OptionD, p.Answer} {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// ParseQuestions reads the bulk import format. Every block starting at a "Q:" line
// consumes the next five lines, whatever they hold; lines between blocks are skipped.
func ParseQuestions(r io.Reader) ([]ParsedQuestion, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimRight(scanner.Text(), "\r"), true
	}
	field := func(prefix string) string {
		line, ok := next()
		if !ok || !strings.HasPrefix(line, prefix) {
			return ""
		}
		return strings.TrimPrefix(line[len(prefix):], " ")
	}

	var parsed []ParsedQuestion
	for {
		line, ok := next()
		if !ok {
			break
		}
		if !strings.HasPrefix(line, "Q:") {
			// blank lines, comments and stray lines
			continue
		}

		p := ParsedQuestion{Text: strings.TrimPrefix(line[2:], " ")}
		p.OptionA = field("A:")
		p.OptionB = field("B:")
		p.OptionC = field("C:")
		p.OptionD = field("D:")
		if answer := field("ANSWER:"); answer != "" {
			p.Answer = answer[:1]
		}
		parsed = append(parsed, p)
	}
	if err := scanner.Err(); err != nil {
		return parsed, fmt.Errorf("read questions: %w", err)
	}
	return parsed, nil
}

// Importer bulk-loads questions into a course through the catalog.
type Importer struct {
	catalog *CatalogService
}

func NewImporter(catalog *CatalogService) *Importer {
	return &Importer{catalog: catalog}
}

// Import inserts every complete, valid block from r with point value 1 and returns
// how many were inserted. Incomplete or invalid blocks are dropped without error;
// a store failure stops the import.
func (im *Importer) Import(ctx context.Context, courseID int64, r io.Reader) (int, error) {
	if _, err := im.catalog.GetCourseByID(ctx, courseID); err != nil {
		return 0, err
	}

	parsed, err := ParseQuestions(r)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range parsed {
		if !p.Complete() {
			continue
		}
		_, err := im.catalog.AddQuestion(ctx, NewQuestion{
			CourseID:      courseID,
			Text:          p.Text,
			OptionA:       p.OptionA,
			OptionB:       p.OptionB,
			OptionC:       p.OptionC,
			OptionD:       p.OptionD,
			CorrectAnswer: p.Answer,
			Points:        1,
		})
		if errors.Is(err, domain.ErrValidation) {
			continue
		}
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// ImportFile imports from a file on disk. It returns 0 with the open error when the
// file cannot be read.
func (im *Importer) ImportFile(ctx context.Context, courseID int64, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open question file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, courseID, f)
}
