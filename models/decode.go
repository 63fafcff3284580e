package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

func DecodePatient(doc bson.M) (*Patient, error) {
	p := &Patient{}
	if err := decode(doc, p); err != nil {
		return nil, fmt.Errorf("decode patient: %w", err)
	}
	return p, nil
}

// DecodeConsultation also records which properties the document carried, so
// absent and empty values can be told apart.
func DecodeConsultation(doc bson.M) (*Consultation, error) {
	c := &Consultation{}
	if err := decode(doc, c); err != nil {
		return nil, fmt.Errorf("decode consultation: %w", err)
	}
	c.present = make(map[string]bool, len(doc))
	for k, v := range doc {
		if v != nil {
			c.present[k] = true
		}
	}
	return c, nil
}

func DecodeInvoice(doc bson.M) (*Invoice, error) {
	i := &Invoice{}
	if err := decode(doc, i); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	return i, nil
}

// ToDocument converts a model into a bson document ready for DocumentStore.Create.
func ToDocument(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := bson.M{}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decode(doc bson.M, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}
