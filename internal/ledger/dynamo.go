package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// dynamoItem is the stored shape; reservationId is the partition key.
type dynamoItem struct {
	ReservationID        string `dynamodbav:"reservationId"`
	CalendarEventID      string `dynamodbav:"calendarEventId,omitempty"`
	StartAt              string `dynamodbav:"startAt"`
	EndAt                string `dynamodbav:"endAt"`
	StartDate            string `dynamodbav:"startDate"`
	CustomerName         string `dynamodbav:"customerName"`
	Email                string `dynamodbav:"email"`
	Phone                string `dynamodbav:"phone"`
	CourseName           string `dynamodbav:"courseName"`
	DurationMinutes      int    `dynamodbav:"durationMinutes"`
	NailOff              bool   `dynamodbav:"nailOff"`
	LengthExtensionCount int    `dynamodbav:"lengthExtensionCount"`
	StaffAssignment      bool   `dynamodbav:"staffAssignment"`
	SelectedStaff        string `dynamodbav:"selectedStaff,omitempty"`
	MenuType             string `dynamodbav:"menuType"`
	VisitStatus          string `dynamodbav:"visitStatus"`
	BasePriceYen         int    `dynamodbav:"basePriceYen"`
	LengthExtensionYen   int    `dynamodbav:"lengthExtensionYen"`
	StaffAssignmentYen   int    `dynamodbav:"staffAssignmentYen"`
	TotalYen             int    `dynamodbav:"totalYen"`
	AttachmentURL        string `dynamodbav:"attachmentUrl,omitempty"`
	CreatedAt            string `dynamodbav:"createdAt"`
}

// Dynamo writes one item per reservation.
type Dynamo struct {
	client    dynamoAPI
	tableName string
	loc       *time.Location
}

func NewDynamo(client dynamoAPI, tableName string, loc *time.Location) *Dynamo {
	if client == nil {
		panic("ledger: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("ledger: table name cannot be empty")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Dynamo{client: client, tableName: tableName, loc: loc}
}

func (d *Dynamo) Append(ctx context.Context, rec Record) error {
	if rec.ReservationID == "" {
		return errors.New("ledger: reservation id required")
	}
	item, err := attributevalue.MarshalMap(dynamoItem{
		ReservationID:        rec.ReservationID,
		CalendarEventID:      rec.CalendarEventID,
		StartAt:              rec.Start.UTC().Format(time.RFC3339),
		EndAt:                rec.End.UTC().Format(time.RFC3339),
		StartDate:            rec.Start.In(d.loc).Format(time.DateOnly),
		CustomerName:         rec.CustomerName,
		Email:                rec.Email,
		Phone:                rec.Phone,
		CourseName:           rec.CourseName,
		DurationMinutes:      rec.DurationMinutes,
		NailOff:              rec.NailOff,
		LengthExtensionCount: rec.LengthExtensionCount,
		StaffAssignment:      rec.StaffAssignment,
		SelectedStaff:        rec.SelectedStaff,
		MenuType:             rec.MenuType,
		VisitStatus:          rec.VisitStatus,
		BasePriceYen:         rec.Breakdown.BasePriceYen,
		LengthExtensionYen:   rec.Breakdown.LengthExtensionYen,
		StaffAssignmentYen:   rec.Breakdown.StaffAssignmentYen,
		TotalYen:             rec.Breakdown.TotalYen,
		AttachmentURL:        rec.AttachmentURL,
		CreatedAt:            rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("ledger: marshal reservation: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(reservationId)"),
	})
	if err != nil {
		return fmt.Errorf("ledger: put reservation: %w", err)
	}
	return nil
}
