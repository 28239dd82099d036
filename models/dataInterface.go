package models

import "fmt"

type Identifier interface {
	GetId() int
}

// interface for dataloader result
type Data interface {
	Identifier
	GetDefault(int) Data
}

func (c Contractor) GetId() int {
	return c.ID
}

// GetDefault stands in for a contractor that no longer exists.
func (c Contractor) GetDefault(id int) Data {
	return Contractor{ID: id, Code: fmt.Sprintf("#%d", id), Name: fmt.Sprintf("#%d", id)}
}

func (m Material) GetId() int {
	return m.ID
}

func (m Material) GetDefault(id int) Data {
	return Material{ID: id, Code: fmt.Sprintf("#%d", id), Name: fmt.Sprintf("#%d", id)}
}
