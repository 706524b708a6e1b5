package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/probelab/discovery-cli/internal/model"
	"github.com/probelab/discovery-cli/internal/pacer"
	"github.com/probelab/discovery-cli/internal/state"
	"github.com/probelab/discovery-cli/internal/store"
	"github.com/probelab/discovery-cli/pkg/harmonic"
)

// SyncStage fetches company records, applies the hard filter, and creates
// startups not already known by profile URL. A missing client or a fetch
// failure is recoverable with a synced count of zero.
func SyncStage(ctx context.Context, client harmonic.Client, st store.Store, filter model.CompanyFilter, pageSize int, pace *pacer.Pacer) *state.Update {
	log := zap.L().Named("sync")
	update := &state.Update{Metrics: &model.Metrics{}}

	if client == nil {
		update.Errors = append(update.Errors, errRecord("sync", "harmonic credentials not configured", true))
		return update
	}
	if st == nil {
		update.Errors = append(update.Errors, errRecord("sync", "store not configured", true))
		return update
	}

	update.Metrics.APICalls++
	resp, err := client.SearchCompanies(ctx, harmonic.SearchRequest{
		FundingStages: stageStrings(filter.Stages),
		PageSize:      pageSize,
	})
	if err != nil {
		update.Errors = append(update.Errors, errRecord("sync", err.Error(), true))
		return update
	}

	for _, company := range resp.Results {
		startup := mapCompany(company)
		if !filter.Match(startup) {
			continue
		}

		existing, err := st.FindStartupByProfileURL(ctx, startup.ProfileURL)
		if err != nil {
			update.Errors = append(update.Errors, errRecord("sync", err.Error(), true))
			continue
		}
		if existing != nil {
			continue
		}

		if err := pace.Wait(ctx); err != nil {
			update.Errors = append(update.Errors, errRecord("sync", err.Error(), false))
			return update
		}
		if _, err := st.CreateStartup(ctx, startup); err != nil {
			update.Errors = append(update.Errors, errRecord("sync", err.Error(), true))
			continue
		}
		update.Synced++
	}

	log.Info("companies synced",
		zap.Int("fetched", len(resp.Results)),
		zap.Int("created", update.Synced),
	)
	return update
}

// mapCompany converts an upstream entity into a domain startup. The
// canonical profile URL prefers the LinkedIn URL, then the website, then
// the entity URN so every record has a dedupe key.
func mapCompany(c harmonic.Company) model.Startup {
	p := c.Properties

	profileURL := p.LinkedinURL
	if profileURL == "" {
		profileURL = p.Website
	}
	if profileURL == "" {
		profileURL = c.EntityURN
	}

	startup := model.Startup{
		Name:         p.Name,
		Website:      p.Website,
		ProfileURL:   profileURL,
		Description:  p.Description,
		FundingTotal: p.FundingTotal,
		FundingStage: model.ParseFundingStage(p.FundingStage),
		FoundedYear:  p.FoundingYear,
		Industries:   p.Categories,
		Locations:    p.Locations,
	}
	if bucket, ok := model.ParseEmployeeBucket(p.HeadcountBucket); ok {
		startup.Employees = bucket
	}
	return startup
}

func stageStrings(stages []model.FundingStage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
