package echoapi

import (
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
	"github.com/trezcool/tathmini/core/content"
)

type assessmentApi struct {
	svc assessment.Service
}

type ImportResponse struct {
	Count int      `json:"count"`
	Items []string `json:"items"`
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc assessment.Service) {
	api := assessmentApi{svc: svc}

	ag := g.Group("", jwt)

	ig := ag.Group("/items")
	ig.GET("", api.queryItems)
	ig.POST("", api.saveItem, instructorMiddleware())
	ig.GET("/:ntiid", api.retrieveItem)
	ig.DELETE("/:ntiid", api.destroyItem, instructorMiddleware())

	ag.POST("/index", api.importIndex, instructorMiddleware())

	ag.POST("/questions/:ntiid/assess", api.assessQuestion)
	ag.POST("/questionsets/:ntiid/assess", api.assessQuestionSet)

	sg := ag.Group("/assignments/:ntiid/submissions")
	sg.POST("", api.submitAssignment)
	sg.GET("", api.querySubmissions)
}

// ntiidParam returns the unescaped ntiid path param.
func ntiidParam(ctx echo.Context) (string, error) {
	id, err := url.PathUnescape(ctx.Param("ntiid"))
	if err != nil {
		return "", core.NewValidationError(err, core.FieldError{Field: "ntiid", Error: "malformed NTIID"})
	}
	return id, nil
}

// checkID makes sure a submission targets the item of the URL. An empty id is set from the URL.
func checkID(id *string, field, want string) error {
	if *id == "" {
		*id = want
	}
	if *id != want {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: "does not match the URL"})
	}
	return nil
}

// forDisplay strips solutions from what students see.
func forDisplay(ctx echo.Context, item assessment.Item) assessment.Item {
	if claims, err := getContextClaims(ctx); err == nil && claims.IsInstructor() {
		return item
	}
	return assessment.StripSolutions(item)
}

// Handlers

func (api *assessmentApi) queryItems(ctx echo.Context) error {
	filter := new(assessment.ItemFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []assessment.Item{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	items, err := api.svc.QueryItems(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying items")
	}
	for i, item := range items {
		items[i] = forDisplay(ctx, item)
	}
	if items == nil {
		items = []assessment.Item{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *assessmentApi) retrieveItem(ctx echo.Context) error {
	id, err := ntiidParam(ctx)
	if err != nil {
		return err
	}
	item, err := api.svc.GetItem(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting item")
	}
	return ctx.JSON(http.StatusOK, forDisplay(ctx, item))
}

func (api *assessmentApi) saveItem(ctx echo.Context) error {
	data, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading body")
	}
	item, err := assessment.DecodeItem(data)
	if err != nil {
		if core.IsInvalidValue(err) {
			return err
		}
		return echo.NewHTTPError(http.StatusBadRequest, errors.Cause(err).Error())
	}
	if err = api.svc.SaveItems(ctx.Request().Context(), item); err != nil {
		return errors.Wrap(err, "saving item")
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *assessmentApi) destroyItem(ctx echo.Context) error {
	id, err := ntiidParam(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if _, err = api.svc.GetItem(reqCtx, id); err != nil {
		return errors.Wrap(err, "getting item")
	}
	if err = api.svc.DeleteItems(reqCtx, id); err != nil {
		return errors.Wrap(err, "deleting item")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) importIndex(ctx echo.Context) error {
	idx, err := content.ReadIndex(ctx.Request().Body)
	if err != nil {
		if core.IsInvalidValue(err) {
			return err
		}
		return echo.NewHTTPError(http.StatusBadRequest, errors.Cause(err).Error())
	}
	items := idx.Flatten()
	if err = api.svc.SaveItems(ctx.Request().Context(), items...); err != nil {
		return errors.Wrap(err, "saving items")
	}

	resp := ImportResponse{Count: len(items), Items: make([]string, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, item.ItemNTIID())
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *assessmentApi) assessQuestion(ctx echo.Context) error {
	id, err := ntiidParam(ctx)
	if err != nil {
		return err
	}
	var sub assessment.QuestionSubmission
	if err = ctx.Bind(&sub); err != nil {
		return errors.Wrap(err, "binding to QuestionSubmission")
	}
	if err = checkID(&sub.QuestionID, "questionId", id); err != nil {
		return err
	}

	assessed, err := api.svc.AssessQuestion(ctx.Request().Context(), sub)
	if err != nil {
		return errors.Wrap(err, "assessing question")
	}
	return ctx.JSON(http.StatusOK, assessed)
}

func (api *assessmentApi) assessQuestionSet(ctx echo.Context) error {
	id, err := ntiidParam(ctx)
	if err != nil {
		return err
	}
	var sub assessment.QuestionSetSubmission
	if err = ctx.Bind(&sub); err != nil {
		return errors.Wrap(err, "binding to QuestionSetSubmission")
	}
	if err = checkID(&sub.QuestionSetID, "questionSetId", id); err != nil {
		return err
	}

	assessed, err := api.svc.AssessQuestionSet(ctx.Request().Context(), sub)
	if err != nil {
		return errors.Wrap(err, "assessing question set")
	}
	return ctx.JSON(http.StatusOK, assessed)
}

func (api *assessmentApi) submitAssignment(ctx echo.Context) error {
	id, err := ntiidParam(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var sub assessment.AssignmentSubmission
	if err = ctx.Bind(&sub); err != nil {
		return errors.Wrap(err, "binding to AssignmentSubmission")
	}
	if err = checkID(&sub.AssignmentID, "assignmentId", id); err != nil {
		return err
	}

	assessed, err := api.svc.SubmitAssignment(ctx.Request().Context(), claims.Person(), sub)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, assessed)
}

func (api *assessmentApi) querySubmissions(ctx echo.Context) error {
	id, err := ntiidParam(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(assessment.SubmissionFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []assessment.AssessedAssignment{})
	}
	filter.AssignmentID = id
	if !claims.IsInstructor() {
		filter.Creator = claims.Subject
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reqCtx := ctx.Request().Context()
	item, err := api.svc.GetItem(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	if _, ok := item.(*assessment.Assignment); !ok {
		return errHttpNotFound
	}

	subs, err := api.svc.QuerySubmissions(reqCtx, *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []assessment.AssessedAssignment{}
	}
	return ctx.JSON(http.StatusOK, subs)
}
