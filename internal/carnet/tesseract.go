package carnet

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Tesseract runs the tesseract CLI, feeding the image on stdin and reading
// TSV from stdout
type Tesseract struct {
	Binary string
}

func NewTesseract(binary string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}

	return &Tesseract{Binary: binary}
}

// Args returns the command line for one run. Page segmentation assumes a
// single uniform block of text and the LSTM engine is forced.
func (t *Tesseract) Args(lang string) []string {
	if lang == "" {
		lang = DefaultLanguages
	}

	return []string{
		"stdin", "stdout",
		"-l", lang,
		"--psm", "6",
		"--oem", "1",
		"-c", "tessedit_char_whitelist=" + Whitelist,
		"-c", "preserve_interword_spaces=1",
		"-c", "textord_min_linesize=2.5",
		"tsv",
	}
}

func (t *Tesseract) ExtractText(ctx context.Context, img []byte, lang string) (string, float64, error) {
	cmd := exec.CommandContext(ctx, t.Binary, t.Args(lang)...)

	zap.L().Debug("Running tesseract", zap.String("cmd", cmd.String()))

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.Stdin = bytes.NewReader(img)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}

		zap.L().Error("Tesseract failed", zap.Error(err), zap.String("stderr", stderr.String()))
		return "", 0, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}

	text, conf, err := ParseTSV(stdout.Bytes())
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}

	return text, conf, nil
}

type lineKey struct {
	page, block, par, line int
}

// ParseTSV rebuilds the text from tesseract's TSV output and averages the
// confidence of the recognised words. Words are joined with single spaces and
// lines with newlines.
func ParseTSV(b []byte) (string, float64, error) {
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var (
		lines   []string
		current []string
		last    lineKey
		first   = true
		header  = true
		confSum float64
		words   int
	)

	for sc.Scan() {
		if header {
			header = false
			if strings.HasPrefix(sc.Text(), "level") {
				continue
			}
		}

		cols := strings.Split(sc.Text(), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}

		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil {
			return "", 0, fmt.Errorf("bad confidence %q", cols[10])
		}

		word := strings.TrimSpace(strings.Join(cols[11:], "\t"))
		if conf < 0 || word == "" {
			continue
		}

		var k lineKey
		k.page, _ = strconv.Atoi(cols[1])
		k.block, _ = strconv.Atoi(cols[2])
		k.par, _ = strconv.Atoi(cols[3])
		k.line, _ = strconv.Atoi(cols[4])

		if !first && k != last {
			lines = append(lines, strings.Join(current, " "))
			current = current[:0]
		}

		first = false
		last = k
		current = append(current, word)
		confSum += conf
		words++
	}

	if err := sc.Err(); err != nil {
		return "", 0, err
	}

	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}

	if words == 0 {
		return "", 0, nil
	}

	return strings.Join(lines, "\n"), confSum / float64(words), nil
}
