package criteria

import (
	"github.com/jobflowhq/jobflow/service/dao"
)

// Match evaluates list parameters against a record's named fields. Supported
// parameter names are matched by the supplied field values; unknown
// parameters are ignored so stores stay forward compatible.
func Match(fields map[string]string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		actual, ok := fields[parameter.Name]
		if !ok {
			continue
		}
		switch expect := parameter.Value.(type) {
		case string:
			if actual != expect {
				return false
			}
		case []string:
			if len(expect) == 0 {
				continue
			}
			matched := false
			for _, candidate := range expect {
				if actual == candidate {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}
