package core

import "opstrack/pkg/domain"

type (
	EntityType         = domain.EntityType
	ActionType         = domain.ActionType
	Severity           = domain.Severity
	Base               = domain.Base
	Ref                = domain.Ref
	User               = domain.User
	Document           = domain.Document
	Lead               = domain.Lead
	Tender             = domain.Tender
	Project            = domain.Project
	Milestone          = domain.Milestone
	Activity           = domain.Activity
	Change             = domain.Change
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	NotFoundError      = domain.NotFoundError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityUser      = domain.EntityUser
	EntityDocument  = domain.EntityDocument
	EntityLead      = domain.EntityLead
	EntityTender    = domain.EntityTender
	EntityProject   = domain.EntityProject
	EntityMilestone = domain.EntityMilestone
	EntityActivity  = domain.EntityActivity
)

const (
	ActionCreate  = domain.ActionCreate
	ActionUpdate  = domain.ActionUpdate
	ActionDelete  = domain.ActionDelete
	ActionConvert = domain.ActionConvert
	ActionUpload  = domain.ActionUpload
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	TenderStatusDraft       = domain.TenderStatusDraft
	TenderStatusSubmitted   = domain.TenderStatusSubmitted
	TenderStatusUnderReview = domain.TenderStatusUnderReview
	TenderStatusWon         = domain.TenderStatusWon
	TenderStatusLost        = domain.TenderStatusLost
)
