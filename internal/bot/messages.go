package bot

import (
	"fmt"

	"portraitbot/internal/domain"
)

const (
	msgSendPhotos       = "Пришлите мне 10 ваших фотографий для создания персональной модели."
	msgProcessing       = "Начинаю обработку фотографий..."
	msgHasModel         = "У вас уже есть обученная модель."
	msgTraining         = "Модель ещё обучается, пожалуйста, подождите."
	msgModelReady       = "Модель обучена! Выберите стиль для генерации:"
	msgChooseStyle      = "У вас уже есть обученная модель. Выберите стиль для генерации:"
	msgGenerating       = "Генерирую изображение..."
	msgProcessingFailed = "Произошла ошибка при обработке фотографий."
	msgGenerationFailed = "Произошла ошибка при генерации изображения."
	msgPleaseStart      = "Пожалуйста, начните с команды /start"
	msgBatchFull        = "Все 10 фотографий уже получены, дождитесь окончания обработки."
)

func msgProgress(count int) string {
	return fmt.Sprintf("Получено %d/%d фотографий", count, domain.BatchSize)
}
