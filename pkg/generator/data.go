package generator

import "rentalai/pkg/domain"

type district struct {
	Name       string
	Multiplier float64
	Metros     []string
}

var districts = []district{
	{Name: "ЦАО", Multiplier: 1.3, Metros: []string{"Китай-город", "Охотный ряд", "Тверская", "Пушкинская", "Арбатская"}},
	{Name: "САО", Multiplier: 1.1, Metros: []string{"Войковская", "Сокол", "Аэропорт", "Динамо"}},
	{Name: "ЮАО", Multiplier: 1.0, Metros: []string{"Коломенская", "Нагатинская", "Орехово", "Домодедовская"}},
	{Name: "ЗАО", Multiplier: 1.2, Metros: []string{"Кунцевская", "Молодежная", "Крылатское", "Строгино"}},
	{Name: "СВАО", Multiplier: 1.0, Metros: []string{"ВДНХ", "Алексеевская", "Рижская", "Бабушкинская"}},
}

var roomWeights = []int{1, 1, 2, 2, 3, 4}

var photoPool = []string{
	"https://images.unsplash.com/photo-1560448204-e02f11c3d0e2?w=800&auto=format&fit=crop",
	"https://images.unsplash.com/photo-1518780664697-55e3ad937233?w=800&auto=format&fit=crop",
	"https://images.unsplash.com/photo-1502672260266-1c1ef2d93688?w=800&auto=format&fit=crop",
	"https://images.unsplash.com/photo-1558036117-15e82a2c9a9a?w=800&auto=format&fit=crop",
	"https://images.unsplash.com/photo-1586023492125-27b2c045efd7?w=800&auto=format&fit=crop",
	"https://images.unsplash.com/photo-1598928506311-c55ded91a20c?w=800&auto=format&fit=crop",
	"https://images.unsplash.com/photo-1600596542815-ffad4c1539a9?w=800&auto=format&fit=crop",
	"https://images.unsplash.com/photo-1600607687939-ce8a6c25118c?w=800&auto=format&fit=crop",
}

var amenityPool = []string{
	"Wi-Fi", "Кондиционер", "Стиральная машина", "Посудомоечная машина",
	"Телевизор", "Холодильник", "Микроволновка", "Духовка", "Фен", "Утюг",
	"Балкон", "Лифт", "Консьерж", "Парковка", "Тренажерный зал", "Бассейн",
}

var streets = []string{
	"Тверская", "Арбат", "Новый Арбат", "Пятницкая", "Большая Дорогомиловская",
	"Ленинский проспект", "Кутузовский проспект", "проспект Мира", "Шереметьевская",
	"Малая Бронная", "Петровка", "Мясницкая", "Сретенка", "Рождественка",
}

var ownerNames = []string{
	"Анна Петрова", "Иван Сидоров", "Мария Иванова", "Алексей Смирнов",
	"Елена Кузнецова", "Дмитрий Попов", "Ольга Васильева", "Сергей Петров",
}

var audiences = []string{"семьи", "пары", "студентов", "молодых специалистов"}

var yards = []string{"Тихий двор", "Зеленый двор", "Двор без машин"}

var walkMinutes = []int{5, 7, 10, 15}

var reviewTexts = []string{
	"Отличная квартира, все соответствует описанию!",
	"Очень понравилось, чистый ремонт, хорошая техника.",
	"Удобное расположение, рядом метро и магазины.",
	"Хозяева приятные, быстро решают все вопросы.",
	"Рекомендую эту квартиру для аренды!",
}

var reviewAuthors = []string{"Анна", "Иван", "Мария", "Алексей", "Дмитрий"}

// seedStrategies is the pool sampled for seeded AI listings.
var seedStrategies = []domain.Strategy{
	domain.StrategyPriceOptimization,
	domain.StrategyCompetitorAnalysis,
	domain.StrategyDemandPrediction,
	domain.StrategyReviewGeneration,
	domain.StrategyAutoMessaging,
}

// DefaultPhoto is attached to listings created without photos.
func DefaultPhoto() string {
	return photoPool[0]
}
