package fragment

import "fmt"

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/specdiff/internal/fragment."+typeMethod+": "+format, a...)
}
