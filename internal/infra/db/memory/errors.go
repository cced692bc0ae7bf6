package memory

import "fmt"

func errDuplicateKey(entity, id string) error {
	return fmt.Errorf("%s %s already exists", entity, id)
}
