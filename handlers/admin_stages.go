// handlers/admin_stages.go
package handlers

import (
	"treasure-hunt-api/middleware"
	"treasure-hunt-api/models"
	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAdminStageRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService) {
	admin := app.Group("/api/v1/admin/stages", middleware.RequireAuth(authService, db), middleware.RequireAdmin(db))

	admin.Post("/", func(c *fiber.Ctx) error {
		type Req struct {
			ContentID           string   `json:"content_id"`
			ParentStageID       *string  `json:"parent_stage_id"`
			StageNo             string   `json:"stage_no"`
			Title               string   `json:"title"`
			Description         *string  `json:"description"`
			StartButtonText     *string  `json:"start_button_text"`
			IsOpen              *bool    `json:"is_open"`
			TimeLimitMin        *int     `json:"time_limit_min"`
			ClearNeedNFCCount   *int     `json:"clear_need_nfc_count"`
			ClearTimeAttackSec  *int     `json:"clear_time_attack_sec"`
			Latitude            *float64 `json:"latitude"`
			Longitude           *float64 `json:"longitude"`
			RadiusM             *int     `json:"radius_m"`
			UnlockOnEnterRadius *bool    `json:"unlock_on_enter_radius"`
			UnlockStageID       *string  `json:"unlock_stage_id"`
			BackgroundImageURL  *string  `json:"background_image_url"`
			ThumbnailURL        *string  `json:"thumbnail_url"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.ContentID == "" || req.StageNo == "" || req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content_id, stage_no and title are required"})
		}

		var count int64
		if err := db.Model(&models.Content{}).Where("id = ?", req.ContentID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "content not found"})
		}
		if err := db.Model(&models.Stage{}).
			Where("content_id = ? AND stage_no = ?", req.ContentID, req.StageNo).
			Count(&count).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		if count > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "stage_no already exists in this content"})
		}

		stage := models.Stage{
			ContentID:          req.ContentID,
			ParentStageID:      req.ParentStageID,
			StageNo:            req.StageNo,
			Title:              req.Title,
			Description:        req.Description,
			StartButtonText:    req.StartButtonText,
			TimeLimitMin:       req.TimeLimitMin,
			ClearNeedNFCCount:  req.ClearNeedNFCCount,
			ClearTimeAttackSec: req.ClearTimeAttackSec,
			Latitude:           req.Latitude,
			Longitude:          req.Longitude,
			RadiusM:            req.RadiusM,
			BackgroundImageURL: req.BackgroundImageURL,
			ThumbnailURL:       req.ThumbnailURL,
			IsOpen:             true,
		}
		if req.IsOpen != nil {
			stage.IsOpen = *req.IsOpen
		}
		if req.UnlockOnEnterRadius != nil {
			stage.UnlockOnEnterRadius = *req.UnlockOnEnterRadius
		}
		// A stage is hidden iff it names an unlocking stage; never itself.
		if req.UnlockStageID != nil && *req.UnlockStageID != "" {
			if err := db.Model(&models.Stage{}).Where("id = ?", *req.UnlockStageID).Count(&count).Error; err != nil || count == 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unlock_stage_id must reference an existing stage"})
			}
			stage.UnlockStageID = req.UnlockStageID
			stage.IsHidden = true
		}

		if err := db.Create(&stage).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(stage)
	})

	admin.Patch("/:id", func(c *fiber.Ctx) error {
		var stage models.Stage
		if err := db.Where("id = ?", c.Params("id")).First(&stage).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stage not found"})
		}

		var req map[string]interface{}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		allowed := map[string]bool{
			"title": true, "description": true, "start_button_text": true,
			"is_open": true, "time_limit_min": true, "clear_need_nfc_count": true,
			"clear_time_attack_sec": true, "latitude": true, "longitude": true,
			"radius_m": true, "unlock_on_enter_radius": true,
			"background_image_url": true, "thumbnail_url": true,
		}
		updates := map[string]interface{}{}
		for k, v := range req {
			if allowed[k] {
				updates[k] = v
			}
		}
		if unlockID, ok := req["unlock_stage_id"]; ok {
			if unlockID == nil || unlockID == "" {
				updates["unlock_stage_id"] = nil
				updates["is_hidden"] = false
			} else if s, ok := unlockID.(string); ok && s != stage.ID {
				updates["unlock_stage_id"] = s
				updates["is_hidden"] = true
			} else {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unlock_stage_id must be another stage"})
			}
		}
		if len(updates) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nothing to update"})
		}

		if err := db.Model(&models.Stage{}).Where("id = ?", stage.ID).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed", "cause": err.Error()})
		}
		db.Where("id = ?", stage.ID).First(&stage)
		return c.JSON(stage)
	})

	admin.Delete("/:id", func(c *fiber.Ctx) error {
		res := db.Where("id = ?", c.Params("id")).Delete(&models.Stage{})
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete failed", "cause": res.Error.Error()})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stage not found"})
		}
		return c.JSON(fiber.Map{"message": "stage deleted"})
	})

	admin.Post("/:id/hints", func(c *fiber.Ctx) error {
		stageID := c.Params("id")
		var count int64
		if err := db.Model(&models.Stage{}).Where("id = ?", stageID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stage not found"})
		}

		type Req struct {
			Preset          string   `json:"preset"`
			OrderNo         int      `json:"order_no"`
			TextBlock1      *string  `json:"text_block_1"`
			TextBlock2      *string  `json:"text_block_2"`
			TextBlock3      *string  `json:"text_block_3"`
			CooldownSec     int      `json:"cooldown_sec"`
			FailCooldownSec int      `json:"fail_cooldown_sec"`
			RewardCoin      int      `json:"reward_coin"`
			NFCID           *string  `json:"nfc_id"`
			TargetLat       *float64 `json:"target_lat"`
			TargetLon       *float64 `json:"target_lon"`
			RadiusM         *int     `json:"radius_m"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.Preset == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "preset is required"})
		}

		// One hint per (stage, tag).
		if req.NFCID != nil && *req.NFCID != "" {
			if err := db.Model(&models.StageHint{}).
				Where("stage_id = ? AND nfc_id = ?", stageID, *req.NFCID).
				Count(&count).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
			}
			if count > 0 {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "this tag is already bound to a hint in the stage"})
			}
		}

		hint := models.StageHint{
			StageID:         stageID,
			Preset:          req.Preset,
			OrderNo:         req.OrderNo,
			TextBlock1:      req.TextBlock1,
			TextBlock2:      req.TextBlock2,
			TextBlock3:      req.TextBlock3,
			CooldownSec:     req.CooldownSec,
			FailCooldownSec: req.FailCooldownSec,
			RewardCoin:      req.RewardCoin,
			NFCID:           req.NFCID,
			TargetLat:       req.TargetLat,
			TargetLon:       req.TargetLon,
			RadiusM:         req.RadiusM,
		}
		if err := db.Create(&hint).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(hint)
	})

	hints := app.Group("/api/v1/admin/hints", middleware.RequireAuth(authService, db), middleware.RequireAdmin(db))

	hints.Delete("/:id", func(c *fiber.Ctx) error {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("hint_id = ?", c.Params("id")).Delete(&models.HintImage{}).Error; err != nil {
				return err
			}
			res := tx.Where("id = ?", c.Params("id")).Delete(&models.StageHint{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return nil
		})
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "hint not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "hint deleted"})
	})

	hints.Post("/:id/images", func(c *fiber.Ctx) error {
		hintID := c.Params("id")
		var count int64
		if err := db.Model(&models.StageHint{}).Where("id = ?", hintID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "hint not found"})
		}

		type Req struct {
			OrderNo int     `json:"order_no"`
			URL     string  `json:"url"`
			AltText *string `json:"alt_text"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.URL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
		}

		image := models.HintImage{
			HintID:  hintID,
			OrderNo: req.OrderNo,
			URL:     req.URL,
			AltText: req.AltText,
		}
		if err := db.Create(&image).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(image)
	})

	admin.Post("/:id/puzzles", func(c *fiber.Ctx) error {
		stageID := c.Params("id")
		var count int64
		if err := db.Model(&models.Stage{}).Where("id = ?", stageID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stage not found"})
		}

		type Req struct {
			PuzzleStyle string  `json:"puzzle_style"`
			ShowWhen    string  `json:"show_when"`
			Config      *string `json:"config"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.ShowWhen != "always" && req.ShowWhen != "after_clear" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "show_when must be always or after_clear"})
		}

		puzzle := models.StagePuzzle{
			StageID:     stageID,
			PuzzleStyle: req.PuzzleStyle,
			ShowWhen:    req.ShowWhen,
			Config:      req.Config,
		}
		if err := db.Create(&puzzle).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(puzzle)
	})

	admin.Post("/:id/unlock-presets", func(c *fiber.Ctx) error {
		stageID := c.Params("id")
		var count int64
		if err := db.Model(&models.Stage{}).Where("id = ?", stageID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stage not found"})
		}

		type Req struct {
			UnlockPreset string  `json:"unlock_preset"`
			NextAction   string  `json:"next_action"`
			ImageURL     *string `json:"image_url"`
			BottomText   *string `json:"bottom_text"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.UnlockPreset != "fullscreen" && req.UnlockPreset != "popup" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unlock_preset must be fullscreen or popup"})
		}
		if req.NextAction != "next_step" && req.NextAction != "next_stage" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "next_action must be next_step or next_stage"})
		}

		preset := models.StageUnlockPreset{
			StageID:      stageID,
			UnlockPreset: req.UnlockPreset,
			NextAction:   req.NextAction,
			ImageURL:     req.ImageURL,
			BottomText:   req.BottomText,
		}
		if err := db.Create(&preset).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(preset)
	})
}
