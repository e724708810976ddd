package models

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Labels maps a class index to its human readable label.
type Labels map[int]string

// Lookup returns the label for index.
func (l Labels) Lookup(index int) (string, bool) {
	label, ok := l[index]
	return label, ok
}

// Indexes returns the class indexes in ascending order.
func (l Labels) Indexes() []int {
	out := make([]int, 0, len(l))
	for idx := range l {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

var labelSplit = regexp.MustCompile(`[:\s]+`)

// ParseLabels reads the Edge TPU label format: each line is either
// "<index> <label>", "<index>: <label>" or a bare label that takes the line
// number as its index. Blank lines are skipped but still count.
func ParseLabels(r io.Reader) (Labels, error) {
	labels := make(Labels)
	scanner := bufio.NewScanner(r)
	row := -1
	for scanner.Scan() {
		row++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pair := labelSplit.Split(line, 2)
		if len(pair) == 2 {
			if idx, err := strconv.Atoi(pair[0]); err == nil && idx >= 0 {
				labels[idx] = strings.TrimSpace(pair[1])
				continue
			}
		}
		labels[row] = line
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}

// ReadLabelFile opens and parses a label file.
func ReadLabelFile(path string) (Labels, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseLabels(file)
}
