package export

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Page derives a 1-based page number. The label's leading digits win
// ("12", "12a"); otherwise pageIndex+1 from the position JSON; otherwise 0.
func Page(label, position string) int {
	label = strings.TrimSpace(label)
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	if end > 0 {
		if n, err := strconv.Atoi(label[:end]); err == nil {
			return n
		}
	}

	if position == "" {
		return 0
	}
	var pos struct {
		PageIndex *int `json:"pageIndex"`
	}
	if err := json.Unmarshal([]byte(position), &pos); err != nil || pos.PageIndex == nil || *pos.PageIndex < 0 {
		return 0
	}
	return *pos.PageIndex + 1
}
