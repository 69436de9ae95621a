package repositories

import (
	"regexp"
	"strings"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// containsRegex matches q anywhere in a field, case-insensitively, with q taken literally.
func containsRegex(q string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
}

func anyFieldContains(q string, fields ...string) bson.M {
	re := containsRegex(q)
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: re})
	}
	return bson.M{"$or": or}
}

func and(clauses bson.A) bson.M {
	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0].(bson.M)
	}
	return bson.M{"$and": clauses}
}

// leadQuery is the Mongo form of utils.FilterLeads. Expired is a view status: a pending lead
// submitted before the expiry cutoff.
func leadQuery(f models.LeadFilter, now time.Time) bson.M {
	var clauses bson.A
	cutoff := models.LeadExpiryCutoff(now)
	expired := bson.M{"submissionDate": bson.M{"$lt": cutoff, "$gt": time.Time{}}}

	switch f.Status {
	case "", "all":
	case models.LeadStatusExpired:
		clauses = append(clauses, bson.M{"status": models.LeadStatusPending}, expired)
	case models.LeadStatusPending:
		clauses = append(clauses, bson.M{"status": models.LeadStatusPending}, bson.M{"$nor": bson.A{expired}})
	default:
		clauses = append(clauses, bson.M{"status": f.Status})
	}

	if f.From != nil || f.To != nil {
		dates := bson.M{}
		if f.From != nil {
			dates["$gte"] = *f.From
		}
		if f.To != nil {
			dates["$lte"] = *f.To
		}
		clauses = append(clauses, bson.M{"submissionDate": dates})
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		clauses = append(clauses, anyFieldContains(q,
			"_id", "customerDetails.fullname", "customerDetails.mobile", "customerDetails.email"))
	}
	return and(clauses)
}

// agentQuery is the Mongo form of utils.FilterAgents over non-admin users.
func agentQuery(q string) bson.M {
	clauses := bson.A{bson.M{"role": bson.M{"$ne": models.RoleAdmin}}}
	if q = strings.TrimSpace(q); q != "" {
		clauses = append(clauses, anyFieldContains(q, "fullname", "mobile", "email", "uniqueID"))
	}
	return and(clauses)
}

// withdrawPipeline joins each request with its agent, applies the utils.FilterWithdrawals
// rules and returns one page plus the total in a single $facet document.
func withdrawPipeline(status, q string, page Page) bson.A {
	pipeline := bson.A{}
	if status != "" && status != "all" {
		pipeline = append(pipeline, bson.M{"$match": bson.M{"status": status}})
	}
	pipeline = append(pipeline,
		bson.M{"$lookup": bson.M{
			"from":         UsersCollection,
			"localField":   "userId",
			"foreignField": "_id",
			"as":           "agent",
		}},
		bson.M{"$set": bson.M{
			"userName":   bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$agent.fullname", 0}}, ""}},
			"userEmail":  bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$agent.email", 0}}, ""}},
			"userMobile": bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$agent.mobile", 0}}, ""}},
		}},
		bson.M{"$unset": "agent"},
	)
	if q = strings.TrimSpace(q); q != "" {
		pipeline = append(pipeline, bson.M{"$match": anyFieldContains(q, "userName", "userEmail", "userMobile", "status")})
	}

	items := bson.A{bson.M{"$sort": bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}}}
	if page.Skip > 0 {
		items = append(items, bson.M{"$skip": page.Skip})
	}
	if page.Limit > 0 {
		items = append(items, bson.M{"$limit": page.Limit})
	}
	return append(pipeline, bson.M{"$facet": bson.M{
		"items": items,
		"total": bson.A{bson.M{"$count": "n"}},
	}})
}

// pageOptions applies a Page to a Find, the way list handlers page with skip and limit.
func pageOptions(opts *options.FindOptions, page Page) *options.FindOptions {
	if page.Skip > 0 {
		opts.SetSkip(int64(page.Skip))
	}
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	return opts
}

// window slices one page out of an already filtered in-memory listing.
func window[T any](items []T, page Page) []T {
	start := page.Skip
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	return items[start:end]
}
