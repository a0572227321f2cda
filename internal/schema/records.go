package schema

import "time"

// Entity is any business noun: customer, employee, product, grant.
type Entity struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	EntityType     string         `json:"entity_type"`
	EntityName     string         `json:"entity_name"`
	EntityCode     string         `json:"entity_code,omitempty"`
	SmartCode      string         `json:"smart_code,omitempty"`
	Status         string         `json:"status"`
	Metadata       map[string]any `json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// EntityFromRow decodes a core_entities row.
func EntityFromRow(r Row) Entity {
	return Entity{
		ID:             r.String("id"),
		OrganizationID: r.String("organization_id"),
		EntityType:     r.String("entity_type"),
		EntityName:     r.String("entity_name"),
		EntityCode:     r.String("entity_code"),
		SmartCode:      r.String("smart_code"),
		Status:         r.String("status"),
		Metadata:       r.Map("metadata"),
		CreatedAt:      r.Time("created_at"),
		UpdatedAt:      r.Time("updated_at"),
	}
}

// DynamicField is one typed attribute attached to an entity.
type DynamicField struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	EntityID       string `json:"entity_id"`
	FieldName      string `json:"field_name"`
	Value          Value  `json:"value"`
	SmartCode      string `json:"smart_code,omitempty"`
}

// DynamicFieldFromRow decodes a core_dynamic_data row.
func DynamicFieldFromRow(r Row) DynamicField {
	return DynamicField{
		ID:             r.String("id"),
		OrganizationID: r.String("organization_id"),
		EntityID:       r.String("entity_id"),
		FieldName:      r.String("field_name"),
		Value:          valueFromRow(r),
		SmartCode:      r.String("smart_code"),
	}
}

// Relationship is a directed typed edge between two entities.
type Relationship struct {
	ID               string         `json:"id"`
	OrganizationID   string         `json:"organization_id"`
	FromEntityID     string         `json:"from_entity_id"`
	ToEntityID       string         `json:"to_entity_id"`
	RelationshipType string         `json:"relationship_type"`
	Strength         float64        `json:"relationship_strength"`
	SmartCode        string         `json:"smart_code,omitempty"`
	Metadata         map[string]any `json:"metadata"`
}

// RelationshipFromRow decodes a core_relationships row.
func RelationshipFromRow(r Row) Relationship {
	return Relationship{
		ID:               r.String("id"),
		OrganizationID:   r.String("organization_id"),
		FromEntityID:     r.String("from_entity_id"),
		ToEntityID:       r.String("to_entity_id"),
		RelationshipType: r.String("relationship_type"),
		Strength:         r.Float("relationship_strength"),
		SmartCode:        r.String("smart_code"),
		Metadata:         r.Map("metadata"),
	}
}

// Transaction is a business event header.
type Transaction struct {
	ID                string         `json:"id"`
	OrganizationID    string         `json:"organization_id"`
	TransactionType   string         `json:"transaction_type"`
	TransactionCode   string         `json:"transaction_code"`
	SmartCode         string         `json:"smart_code"`
	TransactionDate   time.Time      `json:"transaction_date"`
	SourceEntityID    string         `json:"source_entity_id,omitempty"`
	TargetEntityID    string         `json:"target_entity_id,omitempty"`
	TotalAmount       float64        `json:"total_amount"`
	TransactionStatus string         `json:"transaction_status"`
	Metadata          map[string]any `json:"metadata"`
}

// TransactionFromRow decodes a universal_transactions row.
func TransactionFromRow(r Row) Transaction {
	return Transaction{
		ID:                r.String("id"),
		OrganizationID:    r.String("organization_id"),
		TransactionType:   r.String("transaction_type"),
		TransactionCode:   r.String("transaction_code"),
		SmartCode:         r.String("smart_code"),
		TransactionDate:   r.Time("transaction_date"),
		SourceEntityID:    r.String("source_entity_id"),
		TargetEntityID:    r.String("target_entity_id"),
		TotalAmount:       r.Float("total_amount"),
		TransactionStatus: r.String("transaction_status"),
		Metadata:          r.Map("metadata"),
	}
}

// TransactionLine is one line of a transaction.
type TransactionLine struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	TransactionID  string         `json:"transaction_id"`
	LineNumber     int            `json:"line_number"`
	EntityID       string         `json:"entity_id,omitempty"`
	LineType       string         `json:"line_type,omitempty"`
	Description    string         `json:"description,omitempty"`
	Quantity       float64        `json:"quantity"`
	UnitPrice      float64        `json:"unit_price"`
	LineAmount     float64        `json:"line_amount"`
	SmartCode      string         `json:"smart_code"`
	Metadata       map[string]any `json:"metadata"`
}

// TransactionLineFromRow decodes a universal_transaction_lines row.
func TransactionLineFromRow(r Row) TransactionLine {
	return TransactionLine{
		ID:             r.String("id"),
		OrganizationID: r.String("organization_id"),
		TransactionID:  r.String("transaction_id"),
		LineNumber:     int(r.Float("line_number")),
		EntityID:       r.String("entity_id"),
		LineType:       r.String("line_type"),
		Description:    r.String("description"),
		Quantity:       r.Float("quantity"),
		UnitPrice:      r.Float("unit_price"),
		LineAmount:     r.Float("line_amount"),
		SmartCode:      r.String("smart_code"),
		Metadata:       r.Map("metadata"),
	}
}
